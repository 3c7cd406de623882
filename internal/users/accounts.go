package users

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/notifications"
)

type ResetMailer interface {
	SendPasswordResetCode(ctx context.Context, to notifications.Recipient, code string, ttl time.Duration) (string, error)
}

type AccountService struct {
	repo     Repository
	resets   ResetStore
	tokens   *auth.Manager
	mailer   ResetMailer
	resetTTL time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewAccountService(repo Repository, resets ResetStore, tokens *auth.Manager, mailer ResetMailer, resetTTL time.Duration, log *slog.Logger) *AccountService {
	return &AccountService{
		repo:     repo,
		resets:   resets,
		tokens:   tokens,
		mailer:   mailer,
		resetTTL: resetTTL,
		log:      log,
		now:      time.Now,
	}
}

var phoneNoise = regexp.MustCompile(`[\s\-\(\)]`)

func normalizePhone(value string) string {
	return phoneNoise.ReplaceAllString(strings.TrimSpace(value), "")
}

func maskIdentifier(identifier string) string {
	if at := strings.Index(identifier, "@"); at >= 0 {
		local, domain := identifier[:at], identifier[at+1:]
		if len(local) > 2 {
			return local[:1] + "***" + local[len(local)-1:] + "@" + domain
		}
		return "***@" + domain
	}
	if len(identifier) > 4 {
		return "***" + identifier[len(identifier)-4:]
	}
	return "***"
}

func (s *AccountService) ensureUnique(ctx context.Context, username, email, phone, excludeID string) error {
	checks := []struct {
		field, value string
		err          error
	}{
		{"username", username, ErrUsernameTaken},
		{"email", email, ErrEmailTaken},
		{"phone", phone, ErrPhoneTaken},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		taken, err := s.repo.ExistsBy(ctx, c.field, c.value, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return c.err
		}
	}
	return nil
}

func (s *AccountService) issue(u User) (Session, error) {
	token, err := s.tokens.NewAccessToken(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	u.Password = ""
	return Session{User: u, Token: token}, nil
}

func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (Session, error) {
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role != auth.RoleCustomer && role != auth.RoleProvider {
		return Session{}, ErrInvalidRole
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := normalizePhone(req.Phone)
	if err := s.ensureUnique(ctx, username, email, phone, ""); err != nil {
		return Session{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return Session{}, err
	}

	now := s.now().UTC()
	u := User{
		ID:        primitive.NewObjectID().Hex(),
		Username:  username,
		Email:     email,
		Phone:     phone,
		Password:  hash,
		FullName:  strings.TrimSpace(req.FullName),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if role == auth.RoleProvider {
		u.ServicesOffered = cleanServices(req.ServicesOffered)
		u.Location = strings.TrimSpace(req.Location)
		u.Description = strings.TrimSpace(req.Description)
		u.HourlyRate = req.HourlyRate
		u.ServiceRadius = req.ServiceRadius
		if u.ServiceRadius == 0 {
			u.ServiceRadius = defaultServiceRadiusKm
		}
		u.Equipment = strings.TrimSpace(req.Equipment)
		u.Latitude = req.Latitude
		u.Longitude = req.Longitude
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Session{}, ErrUsernameTaken
		}
		return Session{}, err
	}
	return s.issue(u)
}

func (s *AccountService) AdminSignup(ctx context.Context, req AdminSignupRequest) (User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := normalizePhone(req.Phone)
	if err := s.ensureUnique(ctx, username, email, phone, ""); err != nil {
		return User{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return User{}, err
	}

	now := s.now().UTC()
	u := User{
		ID:         primitive.NewObjectID().Hex(),
		Username:   username,
		Email:      email,
		Phone:      phone,
		Password:   hash,
		FullName:   strings.TrimSpace(req.FullName),
		Role:       auth.RoleAdmin,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	u.Password = ""
	return u, nil
}

// Login returns ErrAccountDisabled together with the user so callers can
// report the disable window.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (Session, error) {
	u, err := s.repo.FindForLogin(ctx, strings.TrimSpace(req.Username), strings.ToLower(req.Role))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := auth.ComparePassword(u.Password, req.Password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if u.IsDisabled(s.now()) {
		u.Password = ""
		return Session{User: u}, ErrAccountDisabled
	}
	return s.issue(u)
}

func (s *AccountService) Me(ctx context.Context, userID string) (User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return User{}, notFound(err, ErrNotFound)
	}
	u.Password = ""
	return u, nil
}

func (s *AccountService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (ForgotPasswordResult, error) {
	identifier := strings.TrimSpace(req.Identifier)
	u, err := s.repo.FindByIdentifier(ctx, identifier, strings.ToLower(req.Role))
	if err != nil {
		return ForgotPasswordResult{}, notFound(err, ErrNotFound)
	}

	code, err := auth.NewNumericCode(6)
	if err != nil {
		return ForgotPasswordResult{}, err
	}
	token, err := s.tokens.NewResetToken(u.ID)
	if err != nil {
		return ForgotPasswordResult{}, err
	}

	now := s.now().UTC()
	reset := PasswordReset{
		ID:               primitive.NewObjectID().Hex(),
		UserID:           u.ID,
		VerificationCode: code,
		ResetToken:       token,
		Identifier:       identifier,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.resetTTL),
	}
	if err := s.resets.Replace(ctx, reset); err != nil {
		return ForgotPasswordResult{}, err
	}

	result := ForgotPasswordResult{
		Message:          "Verification code sent successfully",
		ResetToken:       token,
		IdentifierMasked: maskIdentifier(identifier),
		SentVia:          []string{},
	}

	if s.mailer != nil && u.Email != "" {
		to := notifications.Recipient{Email: u.Email, Name: u.DisplayName()}
		if _, err := s.mailer.SendPasswordResetCode(ctx, to, code, s.resetTTL); err != nil {
			s.log.Warn("forgot password: email failed",
				slog.String("user_id", u.ID),
				slog.String("error", err.Error()),
			)
		} else {
			result.SentVia = append(result.SentVia, "email")
		}
	}

	if len(result.SentVia) == 0 {
		result.Message = "Verification code (email not configured)"
		result.VerificationCode = code
	}
	return result, nil
}

func (s *AccountService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	userID, err := s.tokens.ParseReset(req.ResetToken)
	if err != nil {
		return ErrInvalidReset
	}
	if len(req.NewPassword) < minPasswordLength {
		return ErrInvalidReset
	}

	now := s.now().UTC()
	if err := s.resets.Consume(ctx, userID, req.ResetToken, strings.TrimSpace(req.VerificationCode), now); err != nil {
		return notFound(err, ErrInvalidReset)
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return notFound(s.repo.UpdatePassword(ctx, userID, hash, now), ErrNotFound)
}

func (s *AccountService) UpdateProfile(ctx context.Context, p auth.Principal, upd ProfileUpdate) (User, error) {
	fields := map[string]interface{}{}

	if upd.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*upd.FullName)
	}
	if upd.Location != nil {
		fields["location"] = strings.TrimSpace(*upd.Location)
	}
	if upd.Description != nil {
		fields["description"] = strings.TrimSpace(*upd.Description)
	}
	if upd.Latitude != nil {
		fields["latitude"] = *upd.Latitude
	}
	if upd.Longitude != nil {
		fields["longitude"] = *upd.Longitude
	}

	var email, phone string
	if upd.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*upd.Email))
		fields["email"] = email
	}
	if upd.Phone != nil {
		phone = normalizePhone(*upd.Phone)
		fields["phone"] = phone
	}
	if err := s.ensureUnique(ctx, "", email, phone, p.UserID); err != nil {
		return User{}, err
	}

	if p.Role == auth.RoleProvider {
		if upd.ServicesOffered != nil {
			fields["services_offered"] = cleanServices(*upd.ServicesOffered)
		}
		if upd.HourlyRate != nil {
			fields["hourly_rate"] = *upd.HourlyRate
		}
		if upd.ServiceRadius != nil {
			fields["service_radius"] = *upd.ServiceRadius
		}
		if upd.Equipment != nil {
			fields["equipment"] = strings.TrimSpace(*upd.Equipment)
		}
	}

	if upd.Password != nil {
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return User{}, err
		}
		fields["password"] = hash
	}

	if len(fields) == 0 {
		return User{}, ErrEmptyUpdate
	}

	if err := s.repo.UpdateProfile(ctx, p.UserID, fields, s.now().UTC()); err != nil {
		return User{}, notFound(err, ErrNotFound)
	}
	return s.Me(ctx, p.UserID)
}

// SearchProviders lists bookable providers. With coordinates each result
// carries its distance and only providers whose own service radius reaches
// the customer are kept.
func (s *AccountService) SearchProviders(ctx context.Context, q ProviderSearch) ([]ProviderResult, error) {
	providers, err := s.repo.ListProviders(ctx, ProviderFilter{
		Status:   ProviderStatusVerified,
		Active:   true,
		Service:  strings.ToLower(strings.TrimSpace(q.Service)),
		Location: strings.TrimSpace(q.Location),
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]ProviderResult, 0, len(providers))
	for _, p := range providers {
		if p.IsDisabled(now) {
			continue
		}
		result := ProviderResult{User: p}
		if q.Latitude != nil && q.Longitude != nil && p.Latitude != nil && p.Longitude != nil {
			d := round2(haversineKm(*q.Latitude, *q.Longitude, *p.Latitude, *p.Longitude))
			radius := p.ServiceRadius
			if radius <= 0 {
				radius = defaultServiceRadiusKm
			}
			if q.RadiusKm > 0 && q.RadiusKm < radius {
				radius = q.RadiusKm
			}
			if d > radius {
				continue
			}
			result.DistanceKm = &d
		}
		out = append(out, result)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DistanceKm, out[j].DistanceKm
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out, nil
}

func cleanServices(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
