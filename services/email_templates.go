package services

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/tourguider/backend/models"
)

var seoul = time.FixedZone("KST", 9*60*60)

const baseEmailTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>투어가이더 알림</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
    .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
    .button { display: inline-block; padding: 12px 24px; background: #667eea; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
    .footer { text-align: center; margin-top: 30px; color: #666; font-size: 14px; }
    .highlight { background: #fff3cd; padding: 15px; border-radius: 5px; border-left: 4px solid #ffc107; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>투어가이더</h1>
      <p>현지 전문가와 함께하는 맞춤형 여행 상담</p>
    </div>
    <div class="content">
      <h2>{{.Title}}</h2>
      <p>안녕하세요, <strong>{{.UserName}}</strong>님!</p>
      <div class="highlight">
        {{if .Lines}}{{.Intro}}<br><br>
        {{range .Lines}}<strong>{{.Label}}:</strong> {{.Value}}<br>
        {{end}}{{if .Outro}}<br>{{.Outro}}{{end}}{{else}}{{.Message}}{{end}}
      </div>
      <div style="text-align: center;">
        <a href="{{.SiteURL}}" class="button">투어가이더 홈페이지 방문</a>
      </div>
      <p style="margin-top: 30px; font-size: 14px; color: #666;">
        이 이메일에 대한 문의사항이 있으시면 언제든 연락주세요.<br>
        전화: 010-5940-0104 | 이메일: help@tourguider.com
      </p>
    </div>
    <div class="footer">
      <p>© {{.Year}} 투어가이더. All rights reserved.</p>
      <p>이 이메일은 투어가이더 서비스 이용과 관련된 중요한 알림입니다.</p>
    </div>
  </div>
</body>
</html>`

var emailTemplate = template.Must(template.New("email").Parse(baseEmailTemplate))

type emailLine struct {
	Label string
	Value string
}

type emailView struct {
	Title    string
	UserName string
	Message  string
	Intro    string
	Lines    []emailLine
	Outro    string
	SiteURL  string
	Year     int
}

// RenderEmail builds the HTML body for an email notification log
func RenderEmail(log *models.EmailNotificationLog, siteURL string, now time.Time) (string, error) {
	now = now.In(seoul)
	stamp := now.Format("2006. 1. 2. 15:04:05")

	view := emailView{
		Title:    log.Title,
		UserName: log.UserName,
		Message:  log.Message,
		SiteURL:  siteURL,
		Year:     now.Year(),
	}
	if view.UserName == "" {
		view.UserName = "고객"
	}
	if view.SiteURL == "" {
		view.SiteURL = "https://tourguider.com"
	}

	switch log.Type {
	case models.EmailPaymentSuccess:
		view.Intro = "결제가 성공적으로 완료되었습니다."
		view.Lines = []emailLine{
			{"결제 금액", dataAmount(log.Data)},
			{"결제 일시", stamp},
			{"서비스", dataString(log.Data, "serviceName", "여행 상담 서비스")},
		}
	case models.EmailQuoteSubmitted:
		view.Intro = "견적 요청이 성공적으로 접수되었습니다."
		view.Lines = []emailLine{
			{"요청 일시", stamp},
			{"상태", "검토 중"},
		}
		view.Outro = "전문가가 검토한 후 빠른 시일 내에 연락드리겠습니다."
	case models.EmailQuoteApproved:
		view.Intro = "축하합니다! 견적 요청이 승인되었습니다."
		view.Lines = []emailLine{
			{"승인 일시", stamp},
			{"다음 단계", "결제 진행"},
		}
		view.Outro = "결제를 완료하시면 상담 서비스를 이용하실 수 있습니다."
	case models.EmailRefundProcessed:
		view.Intro = "환불 처리가 완료되었습니다."
		view.Lines = []emailLine{
			{"환불 금액", dataAmount(log.Data)},
			{"처리 일시", stamp},
			{"환불 방법", "원결제 수단으로 환불"},
		}
		view.Outro = "환불금은 3-5일 내에 반영됩니다."
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render %s email: %w", log.Type, err)
	}
	return buf.String(), nil
}

func dataString(data models.JSONMap, key, def string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return def
}

func dataAmount(data models.JSONMap) string {
	switch v := data["amount"].(type) {
	case float64:
		return FormatKRW(int64(v))
	case int64:
		return FormatKRW(v)
	case int:
		return FormatKRW(int64(v))
	case string:
		if v != "" {
			return v
		}
	}
	return "확인 중"
}
