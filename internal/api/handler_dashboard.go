package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"barber-growth-backend/internal/model"
)

// EmptySlotResponse is one unbooked slot.
type EmptySlotResponse struct {
	StaffID string `json:"staffId"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Status  string `json:"status"`
}

// GetEmptySlots handles GET /api/tenants/:tenant_id/empty-slots?date=.
// Filled rows are omitted unless all=true.
func (h *Handler) GetEmptySlots(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	date := c.Query("date")
	if !validDate(c, date) {
		return
	}

	slots, err := h.store.ListEmptySlots(c.Request.Context(), tenantID, date)
	if err != nil {
		h.storeError(c, err)
		return
	}

	all := c.Query("all") == "true"
	resp := make([]EmptySlotResponse, 0, len(slots))
	for _, s := range slots {
		if s.Status == model.SlotFilled && !all {
			continue
		}
		resp = append(resp, EmptySlotResponse{
			StaffID: s.StaffID.String(),
			Date:    s.Date,
			Time:    s.Time,
			Status:  string(s.Status),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// ReactivationResponse is one queued client.
type ReactivationResponse struct {
	ClientID            string `json:"clientId"`
	ClientName          string `json:"clientName"`
	ClientPhone         string `json:"clientPhone"`
	DaysInactive        int    `json:"daysInactive"`
	LastAppointmentDate string `json:"lastAppointmentDate"`
	Status              string `json:"status"`
}

// GetReactivation handles GET /api/tenants/:tenant_id/reactivation.
func (h *Handler) GetReactivation(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	entries, err := h.store.ListReactivationEntries(c.Request.Context(), tenantID)
	if err != nil {
		h.storeError(c, err)
		return
	}

	resp := make([]ReactivationResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, ReactivationResponse{
			ClientID:            e.ClientID.String(),
			ClientName:          e.ClientName,
			ClientPhone:         e.ClientPhone,
			DaysInactive:        e.DaysInactive,
			LastAppointmentDate: e.LastAppointmentDate,
			Status:              string(e.Status),
		})
	}
	c.JSON(http.StatusOK, resp)
}

type reactivationStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=sent returned"`
}

// SetReactivationStatus handles POST /api/tenants/:tenant_id/reactivation/:client_id/status.
// Outreach tooling reports "sent" and "returned" here; the sync never advances it.
func (h *Handler) SetReactivationStatus(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	clientID, err := uuid.Parse(c.Param("client_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	var req reactivationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetReactivationStatus(c.Request.Context(), tenantID, clientID, model.ReactivationStatus(req.Status)); err != nil {
		h.storeError(c, err)
		return
	}
	h.flushCache()
	c.Status(http.StatusNoContent)
}

// ClientBehaviorResponse is the behavioral summary of one client.
type ClientBehaviorResponse struct {
	ClientID            string  `json:"clientId"`
	TotalAppointments   int     `json:"totalAppointments"`
	CompletedCount      int     `json:"completedCount"`
	CancelledCount      int     `json:"cancelledCount"`
	NoShowCount         int     `json:"noShowCount"`
	CancelRate          float64 `json:"cancelRate"`
	Classification      string  `json:"classification"`
	LastAppointmentDate string  `json:"lastAppointmentDate"`
}

// GetClientBehavior handles GET /api/tenants/:tenant_id/client-behavior?classification=.
func (h *Handler) GetClientBehavior(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	classification := model.Classification(c.Query("classification"))
	switch classification {
	case "", model.ClassificationNormal, model.ClassificationAtRisk, model.ClassificationBlocked:
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid classification"})
		return
	}

	records, err := h.store.ListClientBehaviors(c.Request.Context(), tenantID, classification)
	if err != nil {
		h.storeError(c, err)
		return
	}

	resp := make([]ClientBehaviorResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, ClientBehaviorResponse{
			ClientID:            r.ClientID.String(),
			TotalAppointments:   r.TotalAppointments,
			CompletedCount:      r.CompletedCount,
			CancelledCount:      r.CancelledCount,
			NoShowCount:         r.NoShowCount,
			CancelRate:          r.CancelRate,
			Classification:      string(r.Classification),
			LastAppointmentDate: r.LastAppointmentDate,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// AlertResponse is the money lost summary of one day.
type AlertResponse struct {
	Date               string  `json:"date"`
	EmptySlotsCount    int     `json:"emptySlotsCount"`
	CancellationsCount int     `json:"cancellationsCount"`
	NoShowsCount       int     `json:"noShowsCount"`
	TotalAppointments  int     `json:"totalAppointments"`
	AvgServicePrice    string  `json:"avgServicePrice"`
	EstimatedLoss      string  `json:"estimatedLoss"`
	CancelRate         float64 `json:"cancelRate"`
	IsCritical         bool    `json:"isCritical"`
	IsDismissed        bool    `json:"isDismissed"`
}

func newAlertResponse(a model.MoneyLostAlert) AlertResponse {
	return AlertResponse{
		Date:               a.Date,
		EmptySlotsCount:    a.EmptySlotsCount,
		CancellationsCount: a.CancellationsCount,
		NoShowsCount:       a.NoShowsCount,
		TotalAppointments:  a.TotalAppointments,
		AvgServicePrice:    a.AvgServicePrice.StringFixed(2),
		EstimatedLoss:      a.EstimatedLoss.StringFixed(2),
		CancelRate:         a.CancelRate,
		IsCritical:         a.IsCritical,
		IsDismissed:        a.IsDismissed,
	}
}

const (
	defaultAlertLimit = 30
	maxAlertLimit     = 366
)

// GetAlerts handles GET /api/tenants/:tenant_id/alerts.
// With ?date= it returns that day's alert, otherwise the most recent ones (?limit=).
func (h *Handler) GetAlerts(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	if date := c.Query("date"); date != "" {
		if !validDate(c, date) {
			return
		}
		alert, err := h.store.GetMoneyLostAlert(c.Request.Context(), tenantID, date)
		if err != nil {
			h.storeError(c, err)
			return
		}
		c.JSON(http.StatusOK, newAlertResponse(*alert))
		return
	}

	limit := defaultAlertLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAlertLimit {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	alerts, err := h.store.ListMoneyLostAlerts(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.storeError(c, err)
		return
	}
	resp := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		resp = append(resp, newAlertResponse(a))
	}
	c.JSON(http.StatusOK, resp)
}

// DismissAlert handles POST /api/tenants/:tenant_id/alerts/:date/dismiss.
// A dismissed alert stays dismissed across later syncs of the same day.
func (h *Handler) DismissAlert(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	date := c.Param("date")
	if !validDate(c, date) {
		return
	}

	if err := h.store.DismissMoneyLostAlert(c.Request.Context(), tenantID, date); err != nil {
		h.storeError(c, err)
		return
	}
	h.flushCache()
	c.Status(http.StatusNoContent)
}
