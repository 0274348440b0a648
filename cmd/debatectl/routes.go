package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neo/debateengine/internal/broadcaster"
	"github.com/neo/debateengine/internal/catalog"
	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
	"github.com/neo/debateengine/internal/export"
	"github.com/neo/debateengine/internal/manager"
	"github.com/neo/debateengine/internal/store"
)

// app bundles the engine components the HTTP layer dispatches to.
type app struct {
	repo        store.Repository
	manager     *manager.Manager
	broadcaster *broadcaster.Broadcaster
	catalog     *catalog.Catalog
}

func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(requestIDMiddleware(), loggingMiddleware(), recoveryMiddleware())

	v1 := r.Group("/v1")
	{
		v1.GET("/providers", a.listProviders)

		debates := v1.Group("/debates")
		debates.POST("", a.createDebate)
		debates.GET("", a.listDebates)
		debates.GET("/:id", a.getDebate)
		debates.GET("/:id/status", a.getStatus)
		debates.POST("/:id/start", a.startDebate)
		debates.DELETE("/:id", a.deleteDebate)
		debates.GET("/:id/export", a.exportDebate)
		debates.GET("/:id/stream", a.streamDebate)
	}

	return r
}

func (a *app) createDebate(c *gin.Context) {
	var config domain.DebateConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		writeError(c, enginerr.Wrap(enginerr.InvalidConfig, "request body", err))
		return
	}
	id, err := a.manager.CreateDebate(config)
	if err != nil {
		writeError(c, err)
		return
	}
	snapshot, err := a.repo.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

func (a *app) listDebates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"debates": a.repo.List()})
}

func (a *app) getDebate(c *gin.Context) {
	snapshot, err := a.repo.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (a *app) getStatus(c *gin.Context) {
	snapshot, err := a.repo.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"debate_id":     snapshot.DebateID,
		"status":        snapshot.Status,
		"current_round": snapshot.CurrentRound,
		"current_turn":  snapshot.CurrentTurn,
		"error_message": snapshot.ErrorMessage,
	})
}

func (a *app) startDebate(c *gin.Context) {
	id := c.Param("id")
	if err := a.manager.Start(id); err != nil {
		writeError(c, err)
		return
	}
	snapshot, err := a.repo.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, snapshot)
}

func (a *app) deleteDebate(c *gin.Context) {
	id := c.Param("id")
	if err := a.manager.Cancel(id); err != nil {
		writeError(c, err)
		return
	}
	a.broadcaster.DropTopic(id)
	c.Status(http.StatusNoContent)
}

func (a *app) exportDebate(c *gin.Context) {
	format := export.Format(c.DefaultQuery("format", "json"))
	snapshot, err := a.repo.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := export.Export(snapshot, format)
	if err != nil {
		writeError(c, err)
		return
	}
	contentType := "application/json"
	switch format {
	case export.FormatMarkdown:
		contentType = "text/markdown"
	case export.FormatText:
		contentType = "text/plain"
	}
	c.Data(http.StatusOK, contentType, data)
}

func (a *app) listProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": a.catalog.Providers})
}
