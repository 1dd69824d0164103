package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

// List Operations

func (s *server) listOperations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operations": s.deps.Registry.List()})
}

// Read Operation

func (s *server) readOperation(c *gin.Context) {
	view, ok := s.deps.Registry.Get(c.Param("id"))
	if !ok {
		writeError(c, operation.Errorf(operation.KeyNotFound, "operation %s not found", c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, view)
}

// Cancel Operation

func (s *server) cancelOperation(c *gin.Context) {
	op, ok := s.deps.Registry.Operation(c.Param("id"))
	if !ok {
		writeError(c, operation.Errorf(operation.KeyNotFound, "operation %s not found", c.Param("id")))
		return
	}

	if op.IsDone() {
		writeError(c, operation.Errorf(operation.AlreadyDone, "operation %s already finished", op.ID()))
		return
	}

	op.Cancel()

	view, _ := s.deps.Registry.Get(op.ID())
	c.JSON(http.StatusOK, view)
}
