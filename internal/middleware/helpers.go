// internal/middleware/helpers.go
package middleware

import (
	"fleetrent-service/internal/domain/notification"
	"fleetrent-service/internal/domain/reservation"

	"github.com/gin-gonic/gin"
)

const (
	RoleCustomer = string(reservation.RoleCustomer)
	RoleStaff    = string(reservation.RoleStaff)
	RoleAdmin    = string(reservation.RoleAdmin)
)

// MustGetIdentityID gets identity ID from context or panics
func MustGetIdentityID(c *gin.Context) int64 {
	identityID, exists := GetIdentityID(c)
	if !exists {
		panic("identity_id not found in context")
	}
	return identityID
}

// GetRoles gets user roles from context
func GetRoles(c *gin.Context) []string {
	roles, exists := c.Get("roles")
	if !exists {
		return []string{}
	}

	rolesList, ok := roles.([]string)
	if !ok {
		return []string{}
	}

	return rolesList
}

// ActorFromContext builds the actor for service calls. The most privileged
// role wins; a token without a known role acts as a customer.
func ActorFromContext(c *gin.Context) reservation.Actor {
	actor := reservation.Actor{ID: MustGetIdentityID(c), Role: reservation.RoleCustomer}
	switch {
	case HasRole(c, RoleAdmin):
		actor.Role = reservation.RoleAdmin
	case HasRole(c, RoleStaff):
		actor.Role = reservation.RoleStaff
	}
	return actor
}

// RecipientFromContext is the notification inbox of the caller.
func RecipientFromContext(c *gin.Context) notification.Recipient {
	return notification.Recipient{IdentityID: MustGetIdentityID(c), Roles: GetRoles(c)}
}
