package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerflow/internal/customers"
)

type CustomerController struct {
	Customers *customers.Service
}

func (cc CustomerController) Create(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	var in customers.Input
	if !decode(c, &in) {
		return
	}
	cust, err := cc.Customers.Create(c.Request.Context(), ac, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cust)
}

func (cc CustomerController) List(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	p := parsePage(c)
	list, total, err := cc.Customers.List(c.Request.Context(), ac, customers.ListFilter{
		Query:  c.Query("q"),
		Limit:  p.limit,
		Offset: p.offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.response(list, total))
}

func (cc CustomerController) GetByID(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	cust, err := cc.Customers.Get(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (cc CustomerController) Update(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	var in customers.Input
	if !decode(c, &in) {
		return
	}
	cust, err := cc.Customers.Update(c.Request.Context(), ac, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (cc CustomerController) Delete(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	if err := cc.Customers.Delete(c.Request.Context(), ac, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
