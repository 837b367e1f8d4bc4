package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ledgerflow/internal/guest"
)

const guestCookieMaxAge = 365 * 24 * 60 * 60

type GuestController struct {
	SecureCookie bool
	Now          func() time.Time
}

func (gc GuestController) now() time.Time {
	if gc.Now != nil {
		return gc.Now()
	}
	return time.Now().UTC()
}

// tracker reads the cookie. A missing cookie is a fresh tracker.
func (gc GuestController) tracker(c *gin.Context) (guest.Tracker, error) {
	value, err := c.Cookie(guest.CookieName)
	if err != nil {
		return guest.Tracker{}, nil
	}
	return guest.Decode(value)
}

func (gc GuestController) save(c *gin.Context, t guest.Tracker) error {
	value, err := t.Encode()
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(guest.CookieName, value, guestCookieMaxAge, "/", "", gc.SecureCookie, true)
	return nil
}

func guestBody(t guest.Tracker) gin.H {
	items := t.Invoices
	if items == nil {
		items = []guest.Invoice{}
	}
	return gin.H{"items": items, "count": t.Count, "remaining": t.Remaining(), "limit": guest.Limit}
}

// Page renders the guest tracker. An unreadable cookie is reset.
func (gc GuestController) Page(c *gin.Context) {
	t, err := gc.tracker(c)
	if errors.Is(err, guest.ErrCorrupt) {
		t = guest.Tracker{}
		c.SetCookie(guest.CookieName, "", -1, "/", "", gc.SecureCookie, true)
	}
	c.HTML(http.StatusOK, "guest.html", gin.H{
		"Invoices":  t.Invoices,
		"Remaining": t.Remaining(),
		"Limit":     guest.Limit,
	})
}

func (gc GuestController) List(c *gin.Context) {
	t, err := gc.tracker(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, guestBody(t))
}

func (gc GuestController) Create(c *gin.Context) {
	t, err := gc.tracker(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var in guest.Input
	if !decode(c, &in) {
		return
	}
	inv, err := t.Add(in, gc.now())
	if err != nil {
		writeError(c, err)
		return
	}
	if err := gc.save(c, t); err != nil {
		writeError(c, err)
		return
	}
	body := guestBody(t)
	body["invoice"] = inv
	c.JSON(http.StatusCreated, body)
}

func (gc GuestController) Delete(c *gin.Context) {
	t, err := gc.tracker(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := t.Remove(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	if err := gc.save(c, t); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, guestBody(t))
}
