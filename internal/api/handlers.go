package api

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"seasonbot/internal/order"
	"seasonbot/internal/widget"
	"seasonbot/internal/wizard"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const sessionKey = "session"

// SessionResponse is returned when a session is created or fetched
type SessionResponse struct {
	Token   string          `json:"token,omitempty"`
	Session widget.Snapshot `json:"session"`
}

// MessageRequest is a chat message from the widget
type MessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// TabRequest switches the visible panel
type TabRequest struct {
	Tab           order.Tab `json:"tab" binding:"required,oneof=chat menu cart"`
	CategoryID    string    `json:"categoryId"`
	SubcategoryID string    `json:"subcategoryId"`
}

// ViewRequest moves the wizard between steps
type ViewRequest struct {
	View wizard.View `json:"view" binding:"required"`
}

// CategoryRequest selects the menu section
type CategoryRequest struct {
	CategoryID    string `json:"categoryId" binding:"required"`
	SubcategoryID string `json:"subcategoryId"`
}

// ItemRequest adds a menu item by code
type ItemRequest struct {
	Code string `json:"code" binding:"required"`
}

// QuantityRequest changes a line's quantity by delta
type QuantityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// NoteRequest sets a line's special instructions
type NoteRequest struct {
	Note string `json:"note" binding:"max=500"`
}

// LocationRequest pins the delivery location. Pointers keep 0 a valid
// coordinate under the required check.
type LocationRequest struct {
	Lat *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" binding:"required,min=-180,max=180"`
}

// fail maps domain errors to HTTP responses
func (s *Server) fail(c *gin.Context, err error) {
	var verr *order.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, order.ErrEmptyCart):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, widget.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, widget.ErrBusy),
		errors.Is(err, widget.ErrWizardClosed),
		errors.Is(err, wizard.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, widget.ErrEmptyMessage),
		errors.Is(err, order.ErrUnknownItem),
		errors.Is(err, order.ErrItemNotInCart),
		errors.Is(err, wizard.ErrUnknownCategory):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// requireSession checks the session token against :id and loads the session
func (s *Server) requireSession(c *gin.Context) {
	id := c.Param("id")
	token := c.GetHeader(TokenHeader)
	if token == "" {
		// image and socket requests cannot set headers
		token = c.Query("token")
	}
	sub, err := s.tokens.Verify(token)
	if err != nil || sub != id {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidToken.Error()})
		return
	}
	c.Set(sessionKey, s.manager.Resume(c.Request.Context(), id))
	c.Next()
}

func sessionFrom(c *gin.Context) *widget.Session {
	return c.MustGet(sessionKey).(*widget.Session)
}

// openWizard returns the session's wizard or writes the error
func (s *Server) openWizard(c *gin.Context) (*widget.Session, *wizard.Wizard, bool) {
	sess := sessionFrom(c)
	w, err := sess.Wizard()
	if err != nil {
		s.fail(c, err)
		return nil, nil, false
	}
	return sess, w, true
}

// respondWizard publishes the change and returns the fresh snapshot
func (s *Server) respondWizard(c *gin.Context, sess *widget.Session, toasts ...order.Toast) {
	sess.Publish(toasts...)
	c.JSON(http.StatusOK, widget.Update{Snapshot: sess.Snapshot(), Toasts: toasts})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.GetMetrics())
}

func (s *Server) handleMenu(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"restaurant": s.catalog.Restaurant(),
		"menu":       s.catalog.Menu(),
	})
}

func (s *Server) handleSearch(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit: " + v})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"results": s.catalog.Search(c.Query("q"), limit)})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.manager.Create(c.Request.Context())
	token, err := s.tokens.Issue(sess.ID())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, SessionResponse{Token: token, Session: sess.Snapshot()})
}

func (s *Server) handleGetSession(c *gin.Context) {
	c.JSON(http.StatusOK, SessionResponse{Session: sessionFrom(c).Snapshot()})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.manager.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResetSession(c *gin.Context) {
	sess := sessionFrom(c)
	sess.Reset(c.Request.Context())
	c.JSON(http.StatusOK, SessionResponse{Session: sess.Snapshot()})
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := sessionFrom(c)
	result, err := sess.Send(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "session": sess.Snapshot()})
}

func (s *Server) handleSetTab(c *gin.Context) {
	var req TabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := sessionFrom(c)
	if err := sess.SetTab(req.Tab, req.CategoryID, req.SubcategoryID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{Session: sess.Snapshot()})
}

// handleReceiptQR renders a QR code for the session's confirmed order
func (s *Server) handleReceiptQR(c *gin.Context) {
	last := sessionFrom(c).LastOrder()
	if last == nil || last.ID != c.Param("orderId") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	size := 256
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > 1024 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid size: " + v})
			return
		}
		size = n
	}

	content := fmt.Sprintf("%s|%s|BDT %d", s.catalog.Restaurant().Name, last.ID, last.Total)
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		s.fail(c, err)
		return
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleWizardState(c *gin.Context) {
	_, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, w.State())
}

func (s *Server) handleWizardView(c *gin.Context) {
	var req ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	if err := w.Navigate(req.View); err != nil {
		s.fail(c, err)
		return
	}
	s.respondWizard(c, sess)
}

func (s *Server) handleWizardCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	if err := w.SelectCategory(req.CategoryID, req.SubcategoryID); err != nil {
		s.fail(c, err)
		return
	}
	s.respondWizard(c, sess)
}

func (s *Server) handleWizardAddItem(c *gin.Context) {
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	toast, err := w.AddItem(req.Code)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondWizard(c, sess, toast)
}

func (s *Server) handleWizardQuantity(c *gin.Context) {
	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	if err := w.ChangeQuantity(c.Param("code"), req.Delta); err != nil {
		s.fail(c, err)
		return
	}
	s.respondWizard(c, sess)
}

func (s *Server) handleWizardNote(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	if err := w.SetNote(c.Param("code"), req.Note); err != nil {
		s.fail(c, err)
		return
	}
	s.respondWizard(c, sess)
}

func (s *Server) handleWizardRemoveItem(c *gin.Context) {
	sess, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	toast, err := w.RemoveItem(c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondWizard(c, sess, toast)
}

func (s *Server) handleWizardCustomer(c *gin.Context) {
	var req wizard.CustomerUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	if err := w.UpdateCustomer(req); err != nil {
		s.fail(c, err)
		return
	}
	s.respondWizard(c, sess)
}

func (s *Server) handleWizardLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	if err := w.SelectLocation(c.Request.Context(), *req.Lat, *req.Lng); err != nil {
		s.fail(c, err)
		return
	}
	s.respondWizard(c, sess)
}

func (s *Server) handleWizardSuggestion(c *gin.Context) {
	sess, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	if err := w.UseSuggestion(); err != nil {
		s.fail(c, err)
		return
	}
	s.respondWizard(c, sess)
}

func (s *Server) handleWizardValidation(c *gin.Context) {
	_, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	errs := w.Validate()
	if errs == nil {
		errs = []*order.ValidationError{}
	}
	c.JSON(http.StatusOK, gin.H{"valid": len(errs) == 0, "errors": errs, "totals": w.Totals()})
}

func (s *Server) handleWizardSubmit(c *gin.Context) {
	sess, w, ok := s.openWizard(c)
	if !ok {
		return
	}
	final, err := w.Submit()
	if err != nil {
		var verr *order.ValidationError
		if errors.As(err, &verr) {
			toast := order.Toast{Message: verr.Message, Kind: order.ToastError}
			sess.Publish(toast)
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": final, "session": sess.Snapshot()})
}
