package templates

import (
	"strings"
	"testing"
	"time"
)

func TestRenderAllTemplates(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 0, 0, time.UTC)
	brand := Brand{AppName: "Users", SupportURL: "https://help.example.com"}
	for _, name := range []string{Welcome, ProfileUpdated, PasswordChanged, RoleChanged, AccountStatus} {
		t.Run(name, func(t *testing.T) {
			d := NewEmailData(brand, "Jane <b>", "jane@x.com", at)
			d.Role = "Admin"
			d.Changes = map[string]string{"name": "Jane <b>"}
			subject, text, html, err := Render(name, d)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if subject == "" || strings.Contains(subject, "\n") {
				t.Fatalf("subject: %q", subject)
			}
			if !strings.Contains(text, "Jane <b>") {
				t.Fatalf("text body lost the name: %s", text)
			}
			if strings.Contains(html, "Jane <b>") {
				t.Fatalf("html body must escape user input: %s", html)
			}
			if !strings.Contains(text, "Users") {
				t.Fatalf("company fallback to app name missing: %s", text)
			}
		})
	}
}

func TestAccountStatusSubject(t *testing.T) {
	d := NewEmailData(Brand{}, "J", "j@x.com", time.Now())
	d.Active = true
	subject, _, _, err := Render(AccountStatus, d)
	if err != nil || subject != "Your account was reactivated" {
		t.Fatalf("subject=%q err=%v", subject, err)
	}
}
