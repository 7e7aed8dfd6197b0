package auth

import (
	"time"

	autherrors "github.com/tradingagents/authkit/pkg/errors"
	"github.com/tradingagents/authkit/pkg/logger"
)

const minUsernameLength = 3

// UserDirectory owns user-record identity. It layers registration,
// credential checks, and profile maintenance over a Backend and
// bootstraps the default administrator at construction.
type UserDirectory struct {
	store  Backend
	codec  CredentialCodec
	policy PasswordPolicy
	log    logger.Logger
}

// NewUserDirectory creates the directory and bootstraps the default
// administrator account. Bootstrap failures are logged, not fatal; the
// directory still serves whatever accounts exist.
func NewUserDirectory(store Backend, codec CredentialCodec, policy PasswordPolicy, log logger.Logger, adminUsername, adminPassword string) *UserDirectory {
	dir := &UserDirectory{
		store:  store,
		codec:  codec,
		policy: policy,
		log:    log,
	}

	if err := dir.BootstrapDefaultAdmin(adminUsername, adminPassword); err != nil {
		log.Error("failed to bootstrap default admin", err, map[string]interface{}{"username": adminUsername})
	}

	return dir
}

// Register creates a new account. Input checks run in order (empty
// fields, username length, email syntax, password policy with every
// violation combined into one message) before the duplicate scan, which
// compares usernames and emails by exact case-sensitive match.
func (d *UserDirectory) Register(username, email, password, fullName string) error {
	if username == "" || email == "" || password == "" {
		return autherrors.NewInvalidInput("username, email and password are required")
	}
	if len(username) < minUsernameLength {
		return autherrors.NewUsernameTooShort(minUsernameLength)
	}
	if !ValidateEmail(email) {
		return autherrors.NewInvalidEmail()
	}
	if violations := d.policy.Validate(password); len(violations) > 0 {
		return autherrors.NewWeakPassword(violations)
	}

	users, err := d.store.LoadAllUsers()
	if err != nil {
		return autherrors.NewStorageUnavailable(err)
	}
	if _, exists := users[username]; exists {
		return autherrors.NewDuplicateUsername()
	}
	for _, existing := range users {
		if existing.Email == email {
			return autherrors.NewDuplicateEmail()
		}
	}

	digest, err := d.codec.Hash(password)
	if err != nil {
		return autherrors.NewInternal(err)
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		FullName:     fullName,
		Role:         RoleUser,
		IsActive:     true,
		Preferences:  DefaultPreferences(),
		CreatedAt:    time.Now(),
	}

	if err := d.store.SaveUser(user); err != nil {
		if autherrors.IsDuplicate(err) {
			return err
		}
		return autherrors.NewStorageUnavailable(err)
	}

	d.log.Info("user registered", map[string]interface{}{"username": username, "email": email})
	return nil
}

// Authenticate verifies the credentials and returns the full record,
// digest included; stripping it is the boundary's job. Unknown username
// and wrong password produce the same generic failure so accounts cannot
// be enumerated. A successful check stamps and persists LastLogin.
func (d *UserDirectory) Authenticate(username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, autherrors.NewInvalidInput("username and password are required")
	}

	user, err := d.store.LoadUser(username)
	if err != nil {
		return nil, autherrors.NewStorageUnavailable(err)
	}
	if user == nil {
		d.log.Warn("login failed: unknown user", map[string]interface{}{"username": username})
		return nil, autherrors.NewBadCredentials()
	}

	if !user.IsActive {
		d.log.Warn("login failed: account disabled", map[string]interface{}{"username": username})
		return nil, autherrors.NewAccountDisabled()
	}

	if !d.codec.Verify(password, user.PasswordHash) {
		d.log.Warn("login failed: wrong password", map[string]interface{}{"username": username})
		return nil, autherrors.NewBadCredentials()
	}

	now := time.Now()
	user.LastLogin = &now
	if err := d.store.UpdateUser(user); err != nil {
		d.log.Warn("failed to persist last login", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
	}

	d.log.Info("user authenticated", map[string]interface{}{"username": username})
	return user, nil
}

// GetInfo returns the record with the digest stripped, or (nil, nil)
// when the user does not exist.
func (d *UserDirectory) GetInfo(username string) (*User, error) {
	user, err := d.store.LoadUser(username)
	if err != nil {
		return nil, autherrors.NewStorageUnavailable(err)
	}
	return user.Sanitized(), nil
}

// updatableFields is the allow-list for UpdateInfo; anything else in the
// updates map is silently ignored.
var updatableFields = map[string]bool{
	"full_name":   true,
	"email":       true,
	"preferences": true,
}

// UpdateInfo applies the allow-listed subset of updates to the record.
// An email change is re-validated for syntax and re-checked for
// uniqueness against every other user. The record's UpdatedAt is
// stamped.
func (d *UserDirectory) UpdateInfo(username string, updates map[string]interface{}) error {
	users, err := d.store.LoadAllUsers()
	if err != nil {
		return autherrors.NewStorageUnavailable(err)
	}
	user, exists := users[username]
	if !exists {
		return autherrors.New(autherrors.ErrCodeNotFound, "user not found")
	}
	user = user.Clone()

	for field, value := range updates {
		if !updatableFields[field] {
			continue
		}
		switch field {
		case "full_name":
			if s, ok := value.(string); ok {
				user.FullName = s
			}
		case "email":
			s, ok := value.(string)
			if !ok {
				continue
			}
			if !ValidateEmail(s) {
				return autherrors.NewInvalidEmail()
			}
			for otherName, other := range users {
				if otherName != username && other.Email == s {
					return autherrors.NewDuplicateEmail()
				}
			}
			user.Email = s
		case "preferences":
			switch prefs := value.(type) {
			case Preferences:
				user.Preferences = prefs
			case map[string]interface{}:
				user.Preferences = Preferences(prefs)
			}
		}
	}

	now := time.Now()
	user.UpdatedAt = &now
	if err := d.store.UpdateUser(user); err != nil {
		if autherrors.IsDuplicate(err) {
			return err
		}
		return autherrors.NewStorageUnavailable(err)
	}

	d.log.Info("user info updated", map[string]interface{}{"username": username})
	return nil
}

// ChangePassword verifies the old password, validates the new one
// against the policy, and stores the new digest with PasswordChangedAt
// stamped. Existing sessions stay valid; revocation on change is a
// deliberate non-behavior inherited from the deployed system.
func (d *UserDirectory) ChangePassword(username, oldPassword, newPassword string) error {
	user, err := d.store.LoadUser(username)
	if err != nil {
		return autherrors.NewStorageUnavailable(err)
	}
	if user == nil {
		return autherrors.New(autherrors.ErrCodeNotFound, "user not found")
	}

	if !d.codec.Verify(oldPassword, user.PasswordHash) {
		return autherrors.NewWrongOldPassword()
	}
	if violations := d.policy.Validate(newPassword); len(violations) > 0 {
		return autherrors.NewWeakPassword(violations)
	}

	digest, err := d.codec.Hash(newPassword)
	if err != nil {
		return autherrors.NewInternal(err)
	}

	now := time.Now()
	user.PasswordHash = digest
	user.PasswordChangedAt = &now
	if err := d.store.UpdateUser(user); err != nil {
		return autherrors.NewStorageUnavailable(err)
	}

	d.log.Info("password changed", map[string]interface{}{"username": username})
	return nil
}

// BootstrapDefaultAdmin idempotently creates the default administrator:
// when the username already exists nothing happens; otherwise the
// account is registered and then promoted to admin as a follow-up
// update.
func (d *UserDirectory) BootstrapDefaultAdmin(username, password string) error {
	existing, err := d.store.LoadUser(username)
	if err != nil {
		return autherrors.NewStorageUnavailable(err)
	}
	if existing != nil {
		return nil
	}

	err = d.Register(username, "admin@tradingagents.local", password, "System Administrator")
	if err != nil {
		if autherrors.HasCode(err, autherrors.ErrCodeDuplicateUsername) {
			return nil
		}
		return err
	}

	admin, err := d.store.LoadUser(username)
	if err != nil || admin == nil {
		return autherrors.NewStorageUnavailable(err)
	}
	admin.Role = RoleAdmin
	if err := d.store.UpdateUser(admin); err != nil {
		return autherrors.NewStorageUnavailable(err)
	}

	d.log.Info("default admin created", map[string]interface{}{"username": username})
	return nil
}

// Delete removes the account and cascades to its sessions. Admin-only at
// the boundary.
func (d *UserDirectory) Delete(username string) error {
	if err := d.store.DeleteUser(username); err != nil {
		if autherrors.CodeOf(err) == autherrors.ErrCodeNotFound {
			return err
		}
		return autherrors.NewStorageUnavailable(err)
	}
	d.log.Info("user deleted", map[string]interface{}{"username": username})
	return nil
}
