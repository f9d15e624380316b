package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler serves the faculty registry endpoints: batches, halls and
// students.
type AdminHandler struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewAdminHandler(db *gorm.DB, log *zap.Logger) *AdminHandler {
	return &AdminHandler{DB: db, Log: log}
}

type batchResp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Students  []string  `json:"students"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *AdminHandler) ListBatches(c *gin.Context) {
	var batches []models.Batch
	if err := h.DB.Order("code ASC").Find(&batches).Error; err != nil {
		h.serverError(c, "list batches", err)
		return
	}

	var members []models.User
	if err := h.DB.Select("id", "batch_id").
		Where("role = ? AND batch_id IS NOT NULL", models.RoleStudent).
		Order("email ASC").
		Find(&members).Error; err != nil {
		h.serverError(c, "list batch members", err)
		return
	}
	byBatch := make(map[string][]string)
	for _, m := range members {
		byBatch[m.Batch()] = append(byBatch[m.Batch()], m.ID)
	}

	items := make([]batchResp, 0, len(batches))
	for _, b := range batches {
		students := byBatch[b.ID]
		if students == nil {
			students = []string{}
		}
		items = append(items, batchResp{ID: b.ID, Name: b.Name, Code: b.Code, Students: students, CreatedAt: b.CreatedAt})
	}

	util.Success(c, util.Response{"batches": items})
}

type createBatchReq struct {
	Name string `json:"name" binding:"required,max=64"`
	Code string `json:"code" binding:"required"`
}

func (h *AdminHandler) CreateBatch(c *gin.Context) {
	var req createBatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request: "+err.Error())
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := util.ValidateCode(code); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}

	batch := models.Batch{
		ID:   uuid.NewString(),
		Name: strings.TrimSpace(req.Name),
		Code: code,
	}
	if err := h.DB.Create(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.Error(c, http.StatusConflict, util.CodeConflict, "Batch code already exists")
			return
		}
		h.serverError(c, "create batch", err)
		return
	}

	h.Log.Info("batch created", zap.String("batch_id", batch.ID), zap.String("code", batch.Code))
	util.Success(c, util.Response{
		"batch": batchResp{ID: batch.ID, Name: batch.Name, Code: batch.Code, Students: []string{}, CreatedAt: batch.CreatedAt},
	})
}

func (h *AdminHandler) ListHalls(c *gin.Context) {
	var halls []models.Hall
	if err := h.DB.Order("code ASC").Find(&halls).Error; err != nil {
		h.serverError(c, "list halls", err)
		return
	}
	util.Success(c, util.Response{"halls": halls})
}

type createHallReq struct {
	Name        string `json:"name" binding:"required,max=64"`
	Code        string `json:"code" binding:"required"`
	MACAddress  string `json:"mac_address" binding:"required"`
	BeaconMajor *int   `json:"beacon_major" binding:"omitempty,min=0,max=65535"`
	BeaconMinor *int   `json:"beacon_minor" binding:"omitempty,min=0,max=65535"`
	Capacity    int    `json:"capacity" binding:"required,gt=0"`
}

func (h *AdminHandler) CreateHall(c *gin.Context) {
	var req createHallReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request: "+err.Error())
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := util.ValidateCode(code); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}
	mac, err := util.NormalizeMAC(req.MACAddress)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}

	hall := models.Hall{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Code:        code,
		MACAddress:  mac,
		BeaconMajor: req.BeaconMajor,
		BeaconMinor: req.BeaconMinor,
		Capacity:    req.Capacity,
	}
	if err := h.DB.Create(&hall).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.Error(c, http.StatusConflict, util.CodeConflict, "Hall code or MAC address already exists")
			return
		}
		h.serverError(c, "create hall", err)
		return
	}

	h.Log.Info("hall created", zap.String("hall_id", hall.ID), zap.String("mac", hall.MACAddress))
	util.Success(c, util.Response{"hall": hall})
}

type studentResp struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
	Batch    *string `json:"batch"`
}

// ListStudents lists the students of ?batch_id=.
func (h *AdminHandler) ListStudents(c *gin.Context) {
	batchID := strings.TrimSpace(c.Query("batch_id"))
	if batchID == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "batch_id is required")
		return
	}

	var users []models.User
	if err := h.DB.Where("role = ? AND batch_id = ?", models.RoleStudent, batchID).
		Order("email ASC").
		Find(&users).Error; err != nil {
		h.serverError(c, "list students", err)
		return
	}

	items := make([]studentResp, 0, len(users))
	for _, u := range users {
		items = append(items, studentResp{ID: u.ID, Email: u.Email, FullName: u.FullName, Batch: u.BatchID})
	}
	util.Success(c, util.Response{"students": items})
}

func (h *AdminHandler) serverError(c *gin.Context, op string, err error) {
	h.Log.Error(op, zap.Error(err))
	util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Internal server error")
}
