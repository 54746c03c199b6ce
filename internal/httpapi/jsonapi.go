package httpapi

import (
	"encoding/json"
	"net/http"
)

const mediaTypeJSONAPI = "application/vnd.api+json"

type link struct {
	Href string `json:"href"`
}

type links struct {
	Self *link `json:"self,omitempty"`
}

type resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

type document struct {
	Data  resource       `json:"data"`
	Links *links         `json:"links,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

func singleDoc(res resource, selfURL string) document {
	doc := document{Data: res}
	if selfURL != "" {
		doc.Links = &links{Self: &link{Href: selfURL}}
	}
	return doc
}

func writeDocument(w http.ResponseWriter, status int, doc document) {
	w.Header().Set("Content-Type", mediaTypeJSONAPI)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}
