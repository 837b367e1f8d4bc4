package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerflow/internal/auth"
	"ledgerflow/internal/invoicetemplates"
	"ledgerflow/internal/workspaces"
)

type SettingsController struct {
	Workspaces *workspaces.Service
}

func (sc SettingsController) Get(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	ws, err := sc.Workspaces.Get(c.Request.Context(), ac)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (sc SettingsController) Update(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	var in workspaces.SettingsInput
	if !decode(c, &in) {
		return
	}
	ws, err := sc.Workspaces.UpdateSettings(c.Request.Context(), ac, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

type TemplateController struct {
	Templates *invoicetemplates.Service
}

func (tc TemplateController) Create(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	var in invoicetemplates.Input
	if !decode(c, &in) {
		return
	}
	tpl, err := tc.Templates.Create(c.Request.Context(), ac, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (tc TemplateController) List(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	list, err := tc.Templates.List(c.Request.Context(), ac)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

func (tc TemplateController) GetByID(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	tpl, err := tc.Templates.Get(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (tc TemplateController) Delete(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	if err := tc.Templates.Delete(c.Request.Context(), ac, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Apply returns the template's items as invoice line inputs.
func (tc TemplateController) Apply(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	lines, err := tc.Templates.Apply(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

type AuthController struct {
	Auth *auth.Service
}

func (h AuthController) Register(c *gin.Context) {
	var in auth.RegisterInput
	if !decode(c, &in) {
		return
	}
	token, user, err := h.Auth.Register(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

func (h AuthController) Login(c *gin.Context) {
	var in auth.LoginInput
	if !decode(c, &in) {
		return
	}
	token, err := h.Auth.Login(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
