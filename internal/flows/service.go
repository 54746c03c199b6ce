package flows

import "context"

// Deps is the full wiring for every flow. The engine fills it once at build
// time and never changes it afterwards.
type Deps struct {
	Login    LoginDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
	Validate ValidateDeps
	Account  AccountDeps
}

// Service binds Deps to the flow functions so callers pass only request
// arguments.
type Service struct {
	deps Deps
}

func New(deps Deps) Service { return Service{deps: deps} }

// Ready reports whether the codec and session store were wired. A zero
// Service is not ready.
func (s Service) Ready() bool {
	return s.deps.Validate.DecodeToken != nil && s.deps.Refresh.SessionStore != nil
}

func (s Service) Login(ctx context.Context, externalID, password string) LoginResult {
	return RunLogin(ctx, externalID, password, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context, token string) RefreshResult {
	return RunRefresh(ctx, token, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, token string) LogoutResult {
	return RunLogout(ctx, token, s.deps.Logout)
}

func (s Service) Validate(token string) ValidateResult {
	return RunValidate(token, s.deps.Validate)
}

func (s Service) CreateAccount(ctx context.Context, req AccountCreateRequest) AccountResult {
	return RunCreateAccount(ctx, req, s.deps.Account)
}
