package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/models"
)

// Resolver decides module/action access for a user. Decisions fail closed:
// a missing or expired binding denies, while lookup failures surface as
// errors so callers can distinguish "could not decide" from "denied".
type Resolver struct {
	db  *gorm.DB
	now func() time.Time
}

// ResolverOption customises the Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the clock used for binding expiry checks.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver constructs an access resolver backed by the provided database.
func NewResolver(db *gorm.DB, opts ...ResolverOption) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("access resolver: db is required")
	}
	r := &Resolver{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve reports whether the user may act on the module. When action is
// empty the check passes if any permission for the module is granted.
//
// Priority order: super-admin bypass, per-user module override, individual
// permission grant, role permission set.
func (r *Resolver) Resolve(ctx context.Context, userID, module, action string) (bool, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, errors.New("access resolver: user id is required")
	}
	module = strings.TrimSpace(module)
	if module == "" {
		return false, errors.New("access resolver: module is required")
	}
	action = strings.TrimSpace(action)

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("access resolver: load user: %w", err)
	}

	if !user.IsActive {
		return false, nil
	}

	if user.IsSuperAdmin() {
		return true, nil
	}

	binding, err := r.activeBinding(ctx, userID)
	if err != nil {
		return false, err
	}
	if binding == nil {
		return false, nil
	}

	overrides, err := binding.ModuleAccessEntries()
	if err != nil {
		return false, err
	}
	for _, entry := range overrides {
		if entry.Module == module {
			return entry.HasAccess, nil
		}
	}

	grants, err := binding.GrantEntries()
	if err != nil {
		return false, err
	}
	for _, grant := range grants {
		def, ok := Get(grant.PermissionID)
		if !ok {
			continue
		}
		if def.Module != module {
			continue
		}
		if action != "" && def.Action != action {
			continue
		}
		return grant.Granted, nil
	}

	if binding.Role == nil || !binding.Role.IsActive {
		return false, nil
	}

	for _, perm := range binding.Role.Permissions {
		if !perm.IsActive {
			continue
		}
		if perm.Module != module {
			continue
		}
		if action != "" && perm.Action != action {
			continue
		}
		return true, nil
	}

	return false, nil
}

// EffectivePermissions returns the distinct permission IDs the user holds
// after applying overrides. Super admins receive the full registry.
func (r *Resolver) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("access resolver: user id is required")
	}

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("access resolver: load user: %w", err)
	}

	if user.IsSuperAdmin() {
		all := GetAll()
		ids := make([]string, 0, len(all))
		for id := range all {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids, nil
	}

	binding, err := r.activeBinding(ctx, userID)
	if err != nil {
		return nil, err
	}
	if binding == nil {
		return nil, nil
	}

	held := make(map[string]struct{})
	if binding.Role != nil && binding.Role.IsActive {
		for _, perm := range binding.Role.Permissions {
			if perm.IsActive {
				held[perm.ID] = struct{}{}
			}
		}
	}

	grants, err := binding.GrantEntries()
	if err != nil {
		return nil, err
	}
	for _, grant := range grants {
		if grant.Granted {
			held[grant.PermissionID] = struct{}{}
		} else {
			delete(held, grant.PermissionID)
		}
	}

	overrides, err := binding.ModuleAccessEntries()
	if err != nil {
		return nil, err
	}
	for _, entry := range overrides {
		if entry.HasAccess {
			continue
		}
		for id := range held {
			if def, ok := Get(id); ok && def.Module == entry.Module {
				delete(held, id)
			}
		}
	}

	ids := make([]string, 0, len(held))
	for id := range held {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// activeBinding loads the user's active role binding, or nil when none
// exists or the binding has expired.
func (r *Resolver) activeBinding(ctx context.Context, userID string) (*models.RoleBinding, error) {
	var binding models.RoleBinding
	err := r.db.WithContext(ctx).
		Preload("Role.Permissions").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		First(&binding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("access resolver: load role binding: %w", err)
	}

	if binding.Expired(r.now()) {
		return nil, nil
	}

	return &binding, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
