package permissions

import (
	"errors"

	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/internal/models"
	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

// Entity identifies a scoped collection for the visibility filter.
type Entity string

const (
	EntityProduct  Entity = "product"
	EntityOrder    Entity = "order"
	EntityCategory Entity = "category"
	EntityUser     Entity = "user"
)

// Scope narrows list queries to the rows a role may see. The zero value is
// deny-all; only pairs enumerated in ScopeFor grant anything.
type Scope struct {
	unrestricted bool
	apply        func(db *gorm.DB) *gorm.DB
}

// Unrestricted reports whether the scope matches everything.
func (s Scope) Unrestricted() bool {
	return s.unrestricted
}

// DenyAll reports whether the scope can never match a row.
func (s Scope) DenyAll() bool {
	return !s.unrestricted && s.apply == nil
}

// Apply attaches the scope's predicate to the query.
func (s Scope) Apply(db *gorm.DB) *gorm.DB {
	if s.unrestricted {
		return db
	}
	if s.apply == nil {
		// Predicate that can never match, for role/entity pairs outside the table.
		return db.Where("1 = 0")
	}
	return s.apply(db)
}

func unrestrictedScope() Scope {
	return Scope{unrestricted: true}
}

func whereScope(query string, args ...any) Scope {
	return Scope{apply: func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}}
}

// sellerOrderScope restricts orders to those containing at least one item
// sold by the user.
func sellerOrderScope(userID string) Scope {
	return Scope{apply: func(db *gorm.DB) *gorm.DB {
		return db.Where("id IN (SELECT order_id FROM order_items WHERE seller_id = ?)", userID)
	}}
}

// ScopeFor derives the query-narrowing predicate for a (role, entity) pair.
// Unknown pairs fall through to deny-all.
func ScopeFor(role, userID string, entity Entity) Scope {
	switch role {
	case models.RoleSuperAdmin:
		return unrestrictedScope()

	case models.RoleAdmin:
		switch entity {
		case EntityProduct:
			return whereScope("created_by_id = ?", userID)
		case EntityOrder:
			return sellerOrderScope(userID)
		case EntityCategory:
			return unrestrictedScope()
		case EntityUser:
			return whereScope("primary_role = ?", models.RoleCustomer)
		}

	case models.RoleSubAdmin:
		switch entity {
		case EntityProduct, EntityOrder, EntityCategory:
			// Support roles see the full catalog and order book.
			return unrestrictedScope()
		case EntityUser:
			return whereScope("primary_role = ?", models.RoleCustomer)
		}

	case models.RoleSeller:
		switch entity {
		case EntityProduct:
			return whereScope("created_by_id = ?", userID)
		case EntityOrder:
			return sellerOrderScope(userID)
		case EntityUser:
			return whereScope("id = ?", userID)
		}

	case models.RoleCustomer:
		switch entity {
		case EntityOrder:
			return whereScope("user_id = ?", userID)
		case EntityUser:
			return whereScope("id = ?", userID)
		}
	}

	return Scope{}
}

// ScopedQuery is the single chokepoint for building visibility-filtered
// queries: callers must supply the requesting identity and entity, so a
// handler cannot forget to scope a listing.
func ScopedQuery(db *gorm.DB, role, userID string, entity Entity) *gorm.DB {
	scope := ScopeFor(role, userID, entity)

	switch entity {
	case EntityProduct:
		db = db.Model(&models.Product{})
	case EntityOrder:
		db = db.Model(&models.Order{})
	case EntityCategory:
		db = db.Model(&models.Category{})
	case EntityUser:
		db = db.Model(&models.User{})
	}

	return scope.Apply(db)
}

// ScopedFirst loads a single scoped row by id. A row hidden by the scope is
// reported as not found, never as forbidden, so existence does not leak.
func ScopedFirst(db *gorm.DB, role, userID string, entity Entity, id string, dest any) error {
	err := ScopedQuery(db, role, userID, entity).Where("id = ?", id).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return err
	}
	return nil
}
