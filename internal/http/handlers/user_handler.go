// User HTTP handlers.
//
//   - POST /users       (register a participant)
//   - GET  /users/{id}
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/affiliate-ledger/internal/domain"
	"github.com/tbourn/affiliate-ledger/internal/http/middleware"
	"github.com/tbourn/affiliate-ledger/internal/services"
)

// CreateUserRequest is the JSON payload for registering a user.
type CreateUserRequest struct {
	Name  string `json:"name"  example:"Ivy"`
	Email string `json:"email" example:"ivy@example.com"`
	// buyer (default), influencer, company or admin
	Role string `json:"role" example:"influencer"`
	// Companies may route order notices to a different address.
	NotificationEmail *string `json:"notification_email,omitempty" example:"orders@example.com"`
}

// UserResponse is a user as seen by others. Contact addresses are only
// shown to the user themselves and to admins.
type UserResponse struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Role              string    `json:"role"`
	Email             string    `json:"email,omitempty"`
	NotificationEmail *string   `json:"notification_email,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func newUserResponse(u *domain.User, withContact bool) UserResponse {
	r := UserResponse{ID: u.ID, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt}
	if withContact {
		r.Email = u.Email
		r.NotificationEmail = u.NotificationEmail
	}
	return r
}

// CreateUser godoc
// @ID          createUser
// @Summary     Register a user
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateUserRequest  true  "User payload"
// @Success     201  {object}  handlers.UserResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Router      /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.users.Create(c.Request.Context(), services.UserInput{
		Name:              req.Name,
		Email:             req.Email,
		Role:              req.Role,
		NotificationEmail: req.NotificationEmail,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	c.Header("Location", h.basePath+"/users/"+strconv.FormatInt(u.ID, 10))
	ok(c, http.StatusCreated, newUserResponse(u, true))
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Users
// @Produce     json
// @Param       X-User-ID  header  string  false  "Caller id (dev identity header)"
// @Param       id         path    int     true   "User ID"
// @Success     200  {object}  handlers.UserResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}

	withContact := false
	if caller, found := middleware.UserID(c); found {
		if caller == u.ID {
			withContact = true
		} else if me, err := h.users.Get(c.Request.Context(), caller); err == nil && me.Role == domain.RoleAdmin {
			withContact = true
		}
	}
	ok(c, http.StatusOK, newUserResponse(u, withContact))
}
