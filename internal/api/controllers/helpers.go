package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"salon/pkg/middleware"
	"salon/pkg/utils"
)

func currentUserID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.GetString(middleware.ContextUserID))
	if err != nil {
		return uuid.Nil, utils.ErrInvalidUserIdentity
	}
	return id, nil
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	return id, err == nil
}
