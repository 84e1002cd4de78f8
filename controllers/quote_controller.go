package controllers

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
	"gorm.io/gorm"
)

// QuoteRequest is a travel quote submitted from the public form, as JSON or multipart
type QuoteRequest struct {
	Name         string   `json:"name" form:"name" binding:"required"`
	Email        string   `json:"email" form:"email" binding:"required"`
	Phone        string   `json:"phone" form:"phone"`
	Destination  string   `json:"destination" form:"destination" binding:"required"`
	Airline      string   `json:"airline" form:"airline"`
	Hotel        string   `json:"hotel" form:"hotel"`
	StartDate    string   `json:"startDate" form:"startDate" binding:"required"`
	EndDate      string   `json:"endDate" form:"endDate" binding:"required"`
	Adults       int      `json:"adults" form:"adults" binding:"required,min=1"`
	Children     int      `json:"children" form:"children" binding:"min=0"`
	Infants      int      `json:"infants" form:"infants" binding:"min=0"`
	TravelStyle  []string `json:"travelStyle" form:"travelStyle"`
	Interests    []string `json:"interests" form:"interests"`
	Budget       string   `json:"budget" form:"budget"`
	Requests     string   `json:"requests" form:"requests"`
	ReferralCode string   `json:"referralCode" form:"referralCode"`
}

// QuoteStatusRequest is an admin decision on a quote
type QuoteStatusRequest struct {
	Status   string `json:"status" binding:"required,oneof=reviewing responded approved rejected"`
	Response string `json:"response"`
}

// SubmitQuote stores a quote request with its attachments
func SubmitQuote(c *gin.Context) {
	utils.LogInfo("SubmitQuote called")

	var req QuoteRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.LogError("Invalid quote request: %v", err)
		utils.BadRequest(c, utils.ErrMissingFields, err.Error())
		return
	}

	quote, verr := buildQuote(&req)
	if len(verr) > 0 {
		utils.LogError("Quote validation failed: %v", verr)
		utils.BadRequest(c, "Validation failed", verr)
		return
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["attachments"]
	}
	if len(files) > utils.MaxAttachments {
		utils.BadRequest(c, "Too many attachments", gin.H{"max": utils.MaxAttachments})
		return
	}
	for _, f := range files {
		if err := utils.ValidateAttachment(f); err != nil {
			utils.BadRequest(c, "Invalid attachment", err.Error())
			return
		}
	}
	if len(files) > 0 && services.Storage == nil {
		utils.LogError("Attachments submitted but storage is not configured")
		utils.ServiceUnavailable(c, utils.ErrStorageNotConfigured)
		return
	}

	ctx := c.Request.Context()
	quote.ID = uuid.New().String()

	attachments, err := uploadAttachments(ctx, quote.ID, files)
	if err != nil {
		utils.LogError("Failed to upload attachments for quote %s: %v", quote.ID, err)
		utils.InternalServerError(c, "Failed to upload attachments", nil)
		return
	}
	quote.Attachments = attachments

	if err := config.DB.WithContext(ctx).Create(quote).Error; err != nil {
		utils.LogError("Failed to save quote: %v", err)
		removeAttachments(ctx, attachments)
		utils.InternalServerError(c, "Failed to save quote", nil)
		return
	}
	utils.QuotesSubmitted.Inc()
	utils.LogInfo("Quote %s submitted by %s for %s", quote.ID, quote.Email, quote.Destination)

	services.QueueEmailQuiet(ctx, &models.EmailNotificationLog{
		Type:      models.EmailQuoteSubmitted,
		Title:     "견적 요청이 접수되었습니다",
		Message:   quote.Destination + " 여행 견적 요청이 접수되었습니다.",
		UserEmail: quote.Email,
		UserName:  quote.Name,
		Data:      models.JSONMap{"quoteId": quote.ID},
	})
	services.NotifyQuiet(ctx, &models.Notification{
		Type:     models.NotificationInfo,
		Title:    "새 견적 요청",
		Message:  quote.Name + "님이 " + quote.Destination + " 견적을 요청했습니다.",
		Metadata: models.JSONMap{"quoteId": quote.ID, "email": quote.Email},
	})

	utils.Created(c, "Quote submitted successfully", gin.H{"id": quote.ID})
}

func buildQuote(req *QuoteRequest) (*models.Quote, utils.FieldValidationErrors) {
	var verr utils.FieldValidationErrors

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if ok, msg := utils.ValidateEmail(email); !ok {
		verr.Add("email", msg)
	}
	if ok, msg := utils.ValidateName(req.Name); !ok {
		verr.Add("name", msg)
	}
	phone := ""
	if ok, msg := utils.ValidatePhone(req.Phone); !ok {
		verr.Add("phone", msg)
	} else {
		phone = msg
	}

	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		verr.Add("startDate", "Invalid date")
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		verr.Add("endDate", "Invalid date")
	}
	if !start.IsZero() && !end.IsZero() {
		if err := utils.ValidateDateRange(start, end); err != nil {
			verr.Add("endDate", err.Error())
		}
	}
	if len(verr) > 0 {
		return nil, verr
	}

	quote := &models.Quote{
		Name:        utils.SanitizeString(req.Name),
		Email:       email,
		Phone:       phone,
		Destination: utils.SanitizeString(req.Destination),
		Airline:     utils.SanitizeString(req.Airline),
		Hotel:       utils.SanitizeString(req.Hotel),
		StartDate:   start,
		EndDate:     end,
		Adults:      req.Adults,
		Children:    req.Children,
		Infants:     req.Infants,
		TravelStyle: sanitizeList(req.TravelStyle),
		Interests:   sanitizeList(req.Interests),
		Budget:      utils.SanitizeString(req.Budget),
		Requests:    utils.SanitizeString(req.Requests),
		Status:      models.QuoteStatusPending,
		Attachments: []models.Attachment{},
	}

	if code := strings.ToUpper(strings.TrimSpace(req.ReferralCode)); code != "" {
		var count int64
		config.DB.Model(&models.User{}).Where("referral_code = ?", code).Count(&count)
		if count > 0 {
			quote.ReferralCode = code
		} else {
			utils.LogWarn("Ignoring unknown referral code %s on quote", code)
		}
	}
	return quote, nil
}

func sanitizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = utils.SanitizeString(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func uploadAttachments(ctx context.Context, quoteID string, files []*multipart.FileHeader) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		src, err := f.Open()
		if err != nil {
			removeAttachments(ctx, attachments)
			return nil, err
		}

		contentType := utils.AttachmentContentType(f)
		stored, err := services.Storage.Upload(ctx, utils.AttachmentPath(quoteID, f.Filename), contentType, src)
		src.Close()
		if err != nil {
			removeAttachments(ctx, attachments)
			return nil, err
		}

		attachments = append(attachments, models.Attachment{
			Name: f.Filename,
			Type: contentType,
			Size: f.Size,
			URL:  stored.URL,
			Path: stored.Path,
		})
	}
	return attachments, nil
}

func removeAttachments(ctx context.Context, attachments []models.Attachment) {
	if len(attachments) == 0 || services.Storage == nil {
		return
	}
	paths := make([]string, len(attachments))
	for i, a := range attachments {
		paths[i] = a.Path
	}
	if err := services.Storage.Remove(ctx, paths...); err != nil {
		utils.LogError("Failed to remove orphaned attachments: %v", err)
	}
}

// GetUserQuotes lists the quotes submitted with an email address
func GetUserQuotes(c *gin.Context) {
	utils.LogInfo("GetUserQuotes called")

	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if email == "" {
		utils.BadRequest(c, utils.ErrEmailRequired, nil)
		return
	}

	var quotes []models.Quote
	if err := config.DB.Where("email = ?", email).Order("created_at DESC").Find(&quotes).Error; err != nil {
		utils.LogError("Failed to fetch quotes for %s: %v", email, err)
		utils.InternalServerError(c, "Failed to fetch quotes", nil)
		return
	}

	utils.Success(c, "Quotes retrieved successfully", gin.H{
		"quotes": quotes,
		"total":  len(quotes),
	})
}

// AdminListQuotes lists quotes with an optional status filter
func AdminListQuotes(c *gin.Context) {
	utils.LogInfo("AdminListQuotes called")
	p := utils.NewPagination(c)

	q := config.DB.Model(&models.Quote{})
	if status := c.Query("status"); status != "" && status != "all" {
		q = q.Where("status = ?", status)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(destination) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.LogError("Failed to count quotes: %v", err)
		utils.InternalServerError(c, "Failed to fetch quotes", nil)
		return
	}
	p.SetTotal(total)

	var quotes []models.Quote
	if err := q.Order("created_at DESC").Offset(p.Offset).Limit(p.Limit).Find(&quotes).Error; err != nil {
		utils.LogError("Failed to fetch quotes: %v", err)
		utils.InternalServerError(c, "Failed to fetch quotes", nil)
		return
	}

	utils.SuccessWithPagination(c, "Quotes retrieved successfully", quotes, total, p.Page, p.Limit)
}

// AdminGetQuote returns one quote
func AdminGetQuote(c *gin.Context) {
	utils.LogInfo("AdminGetQuote called")

	var quote models.Quote
	if err := config.DB.First(&quote, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Quote not found")
			return
		}
		utils.LogError("Failed to fetch quote %s: %v", c.Param("id"), err)
		utils.InternalServerError(c, "Failed to fetch quote", nil)
		return
	}
	utils.Success(c, "Quote retrieved successfully", gin.H{"quote": quote})
}

// AdminUpdateQuoteStatus records an admin decision and tells the customer about approvals and rejections
func AdminUpdateQuoteStatus(c *gin.Context) {
	utils.LogInfo("AdminUpdateQuoteStatus called")

	var req QuoteStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}

	ctx := c.Request.Context()
	var quote models.Quote
	if err := config.DB.WithContext(ctx).First(&quote, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Quote not found")
			return
		}
		utils.InternalServerError(c, "Failed to fetch quote", nil)
		return
	}

	now := time.Now()
	quote.Status = req.Status
	updates := map[string]interface{}{"status": req.Status}
	if req.Response != "" {
		quote.Response = utils.SanitizeString(req.Response)
		quote.RespondedAt = &now
		updates["response"] = quote.Response
		updates["responded_at"] = now
	}
	if err := config.DB.WithContext(ctx).Model(&quote).Updates(updates).Error; err != nil {
		utils.LogError("Failed to update quote %s: %v", quote.ID, err)
		utils.InternalServerError(c, "Failed to update quote", nil)
		return
	}
	utils.LogInfo("Quote %s moved to %s", quote.ID, req.Status)

	switch req.Status {
	case models.QuoteStatusApproved:
		notifyQuoteDecision(ctx, &quote, models.EmailQuoteApproved, models.NotificationSuccess,
			"견적 요청이 승인되었습니다", "결제를 완료하시면 상담 서비스를 이용하실 수 있습니다.")
	case models.QuoteStatusRejected:
		msg := req.Response
		if msg == "" {
			msg = "요청하신 조건으로는 견적을 진행하기 어렵습니다."
		}
		notifyQuoteDecision(ctx, &quote, models.EmailQuoteRejected, models.NotificationWarning,
			"견적 요청 결과 안내", msg)
	}

	utils.Success(c, utils.MsgUpdateSuccess, gin.H{"quote": quote})
}

func notifyQuoteDecision(ctx context.Context, quote *models.Quote, emailType, notificationType, title, message string) {
	services.QueueEmailQuiet(ctx, &models.EmailNotificationLog{
		Type:      emailType,
		Title:     title,
		Message:   message,
		UserEmail: quote.Email,
		UserName:  quote.Name,
		Priority:  "high",
		Data:      models.JSONMap{"quoteId": quote.ID},
	})
	services.NotifyQuiet(ctx, &models.Notification{
		Type:      notificationType,
		Title:     title,
		Message:   message,
		UserEmail: quote.Email,
		Metadata:  models.JSONMap{"quoteId": quote.ID},
	})
}
