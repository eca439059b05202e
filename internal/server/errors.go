package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lox/rikiki/internal/game"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps engine error codes to HTTP statuses.
func statusFor(code game.Code) int {
	switch code {
	case game.CodeNotFound:
		return http.StatusNotFound
	case game.CodeAlreadyExists, game.CodeInUse, game.CodeInvalidStateTransition:
		return http.StatusConflict
	case game.CodeInvalidConfiguration,
		game.CodeOutOfRangeGuess,
		game.CodeOutOfRangeHits,
		game.CodeForcedConflictViolation,
		game.CodeIncompleteGuesses,
		game.CodeIncompleteResults:
		return http.StatusUnprocessableEntity
	case game.CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := game.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: "internal", Message: "internal error"}})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: string(code), Message: err.Error()}})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": errorBody{Code: string(game.CodeInvalidArgument), Message: err.Error()},
	})
}
