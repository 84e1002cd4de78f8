package controllers

import (
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
)

// DownloadRequest names a stored file and the name to save it under
type DownloadRequest struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
}

var downloadClient = &http.Client{Timeout: 60 * time.Second}

// storageHost returns the host attachment URLs are allowed to point at
func storageHost() string {
	if services.Storage != nil {
		return services.Storage.Host()
	}
	if u, err := url.Parse(config.Get().SupabaseURL); err == nil {
		return u.Host
	}
	return ""
}

// contentDisposition builds an attachment header that keeps non-ASCII file names intact
func contentDisposition(fileName string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, fileName)
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + url.PathEscape(fileName)
}

// DownloadFile streams a stored attachment back with a download file name
func DownloadFile(c *gin.Context) {
	utils.LogInfo("DownloadFile called")

	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FileURL == "" || req.FileName == "" {
		utils.BadRequest(c, "fileUrl and fileName are required", nil)
		return
	}

	host := storageHost()
	if host == "" {
		utils.ServiceUnavailable(c, utils.ErrStorageNotConfigured)
		return
	}
	u, err := url.Parse(req.FileURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || !strings.EqualFold(u.Host, host) {
		utils.LogWarn("Rejected download of %s", req.FileURL)
		utils.Forbidden(c, "File URL is not allowed")
		return
	}

	upstreamReq, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		utils.BadRequest(c, "Invalid file URL", nil)
		return
	}
	resp, err := downloadClient.Do(upstreamReq)
	if err != nil {
		utils.LogError("Failed to fetch %s: %v", u.String(), err)
		utils.Error(c, http.StatusBadGateway, "Failed to download file", nil)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		utils.LogError("Storage answered %d for %s", resp.StatusCode, u.String())
		utils.Error(c, resp.StatusCode, "Failed to download file", gin.H{"status": resp.Status})
		return
	}

	contentType := req.FileType
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fileName := path.Base(strings.ReplaceAll(req.FileName, "\\", "/"))
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", contentDisposition(fileName))
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	if resp.ContentLength > 0 {
		c.Header("Content-Length", resp.Header.Get("Content-Length"))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		utils.LogError("Download of %s interrupted: %v", fileName, err)
	}
}
