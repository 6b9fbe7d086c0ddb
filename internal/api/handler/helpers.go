package handler

import (
	"encoding/json"
	"net/http"

	"iquizu/internal/api/middleware"
	"iquizu/internal/common"
)

// decode reads a JSON body into dst, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// caller returns the authenticated user's id and role.
func caller(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return "", "", false
	}
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	return userID, role, true
}
