package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/db/controller/audit"
	"github.com/glasspane/glasspane/internal/db/controller/groupsync"
	"github.com/glasspane/glasspane/internal/db/models"
	"github.com/glasspane/glasspane/internal/directory"
)

// Service coordinates the login flow across the directory, the local user
// cache and the audit trail.
type Service struct {
	db  *gorm.DB
	dir *directory.Service
	env config.Auth
}

// NewService creates a login coordinator.
func NewService(db *gorm.DB, dir *directory.Service, env config.Auth) *Service {
	return &Service{
		db:  db,
		dir: dir,
		env: env,
	}
}

// Result is the outcome of a successful login.
type Result struct {
	User  *models.User
	Roles []string
}

// Login runs the full authentication decision for one credential pair.
// Returns ErrMissingCredentials, ErrInvalidCredentials or
// ErrServiceUnavailable on failure; every outcome is audited with the
// client address.
func (s *Service) Login(loginID, secret, clientIP string) (*Result, error) {
	loginID = strings.TrimSpace(loginID)
	if loginID == "" || secret == "" {
		return nil, ErrMissingCredentials
	}

	cfg := s.dir.Resolve()
	fallback := s.localFallbackAllowed()

	details := map[string]any{
		"username":       loginID,
		"ldap_attempted": cfg.Configured(),
	}

	var principal *directory.Principal

	if cfg.Configured() {
		var errDir error

		principal, errDir = s.dir.AuthenticateUser(loginID, secret)
		if errDir != nil {
			if directory.IsConnectionError(errDir) {
				details["ldap_error"] = errDir.Error()

				log.Warn().Err(errDir).Str("uid", loginID).
					Msg("directory unavailable during login")

				if !fallback {
					details["reason"] = "directory unavailable, local fallback disabled"
					s.auditFailure(clientIP, details)

					return nil, ErrServiceUnavailable
				}
			} else if !errors.Is(errDir, directory.ErrInvalidCredentials) {
				details["ldap_error"] = errDir.Error()
			}
		}
	}

	if principal == nil {
		if !fallback {
			s.auditFailure(clientIP, details)

			return nil, ErrInvalidCredentials
		}

		principal = s.localFallback(loginID, secret)
		if principal == nil {
			s.auditFailure(clientIP, details)

			return nil, ErrInvalidCredentials
		}

		details["local_fallback"] = true
	}

	user, err := s.syncUser(principal)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			details["reason"] = "account disabled"
			s.auditFailure(clientIP, details)

			return nil, ErrInvalidCredentials
		}

		log.Error().Err(err).Str("uid", loginID).Msg("user sync failed after authentication")
		s.auditFailure(clientIP, details)

		return nil, ErrServiceUnavailable
	}

	roles := GetUserRoles(s.db, user.ID)
	if user.IsLocalAdmin && !contains(roles, AdminRole) {
		roles = append(roles, AdminRole)
	}

	audit.Record(s.db, &user.ID, clientIP, audit.ActionLoginSuccess, details)

	log.Info().Str("uid", user.UID).Bool("local_admin", user.IsLocalAdmin).
		Int("roles", len(roles)).Msg("login succeeded")

	return &Result{User: user, Roles: roles}, nil
}

// localFallbackAllowed resolves the fallback policy: the persisted webapp
// config record wins over the environment default when present.
func (s *Service) localFallbackAllowed() bool {
	var webCfg models.WebAppConfig

	err := s.db.First(&webCfg, models.WebAppConfigID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Msg("failed to load webapp config, using environment fallback policy")
		}

		return s.env.AllowLocalFallback
	}

	return webCfg.LocalFallbackEnabled
}

// localFallback verifies the credentials against a local admin account.
// Only enabled local admins with a password hash are eligible; returns nil
// on any mismatch so the caller stays on the generic rejection path.
func (s *Service) localFallback(loginID, secret string) *directory.Principal {
	var user models.User

	err := s.db.Where("uid = ? AND is_local_admin = ? AND disabled = ?", loginID, true, false).
		First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Str("uid", loginID).Msg("local fallback lookup failed")
		}

		return nil
	}

	if user.PasswordHash == "" {
		log.Warn().Str("uid", loginID).
			Msg("local admin has no password hash, fallback login refused")

		return nil
	}

	if !user.VerifyPassword(secret) {
		log.Warn().Str("uid", loginID).Msg("local fallback password mismatch")

		return nil
	}

	return &directory.Principal{
		UID:         user.UID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}
}

// syncUser upserts the local user record for an authenticated principal and
// refreshes its cached group memberships. Profile fields are only updated
// from non-empty directory values, so a fallback login never blanks the
// cached directory profile.
func (s *Service) syncUser(principal *directory.Principal) (*models.User, error) {
	var user models.User

	err := s.db.Where("uid = ?", principal.UID).First(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			UID:         principal.UID,
			DN:          principal.DN,
			DisplayName: principal.DisplayName,
			Email:       principal.Email,
		}
		if user.DisplayName == "" {
			user.DisplayName = principal.UID
		}
	case err != nil:
		return nil, err
	case user.Disabled:
		return nil, ErrInvalidCredentials
	default:
		if principal.DN != "" {
			user.DN = principal.DN
		}

		if principal.DisplayName != "" {
			user.DisplayName = principal.DisplayName
		}

		if principal.Email != "" {
			user.Email = principal.Email
		}
	}

	if principal.DN != "" {
		user.CachedGroups = s.resolveGroups(principal)
	}

	now := time.Now()
	user.LastLogin = &now

	if err := s.db.Save(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// resolveGroups fetches the full membership set for a directory principal
// and registers every discovered group. Degrades to the forward-lookup list
// from the login search, then to the empty set, rather than failing the
// login.
func (s *Service) resolveGroups(principal *directory.Principal) []string {
	groups, err := s.dir.UserGroups(principal.UID)
	if err != nil {
		log.Error().Err(err).Str("uid", principal.UID).
			Msg("group resolution failed, using forward references from login search")

		groups = principal.Groups
	}

	return s.registerGroups(groups)
}

// registerGroups trims the DN list and upserts every group into the local
// registry. Registration failures are logged; the DN stays cached.
func (s *Service) registerGroups(groups []string) []string {
	cached := make([]string, 0, len(groups))

	for _, dn := range groups {
		dn = strings.TrimSpace(dn)
		if dn == "" {
			continue
		}

		cached = append(cached, dn)

		if _, errSync := groupsync.Sync(s.db, dn, "", ""); errSync != nil {
			log.Error().Err(errSync).Str("dn", dn).Msg("failed to register directory group")
		}
	}

	return cached
}

func (s *Service) auditFailure(clientIP string, details map[string]any) {
	audit.Record(s.db, nil, clientIP, audit.ActionLoginFailed, details)
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}

	return false
}
