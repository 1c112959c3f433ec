package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
)

type signup struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwd"`
	Role     string `json:"role" validate:"omitempty,oneof=User Admin Moderator"`
	Page     int    `form:"page" validate:"gte=0"`
}

func TestStructReportsEveryField(t *testing.T) {
	v := New(DefaultConfig())
	err := v.Struct(signup{Email: "nope", Password: "short", Role: "Root", Page: -1})
	details := ToDetails(err)
	want := map[string]string{
		"name":     "is required",
		"email":    "must be a valid email",
		"password": "must be at least 8 characters long",
		"role":     "must be one of: User, Admin, Moderator",
		"page":     "must be greater than or equal to 0",
	}
	for field, msg := range want {
		if details[field] != msg {
			t.Fatalf("%s: want=%q got=%q", field, msg, details[field])
		}
	}
	if errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("kind: %v", errs.KindOf(err))
	}
	if !errs.HasCode(err, "Request.Oneof") || !errs.HasCode(err, "Request.Required") {
		t.Fatalf("codes: %v", errs.Codes(err))
	}
}

func TestStructValid(t *testing.T) {
	v := New(DefaultConfig())
	if err := v.Struct(signup{Name: "Jane", Email: "j@x.com", Password: "Aa1!aaaa"}); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestBindError(t *testing.T) {
	var dst signup
	err := json.NewDecoder(strings.NewReader(`{"name":`)).Decode(&dst)
	if got := ToDetails(BindError(err)); got["payload"] != "invalid json" {
		t.Fatalf("truncated json: %v", got)
	}
	err = json.Unmarshal([]byte(`{"name": 5}`), &dst)
	if got := ToDetails(BindError(err)); got["name"] == "" {
		t.Fatalf("type mismatch must name the field: %v", got)
	}
}

type passwordChange struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,pwd,nefield=Current"`
}

func TestStructMessagesForPasswordRules(t *testing.T) {
	v := New(DefaultConfig())
	details := ToDetails(v.Struct(passwordChange{Current: "Aa1!aaaa", New: "Aa1!aaaa"}))
	if got := details["new_password"]; got != "must not be equal to Current field" {
		t.Fatalf("nefield: want=%q got=%q", "must not be equal to Current field", got)
	}
	details = ToDetails(v.Struct(passwordChange{Current: "x", New: strings.Repeat("a", 129)}))
	if got := details["new_password"]; got != "must be at most 128 characters long" {
		t.Fatalf("max: want=%q got=%q", "must be at most 128 characters long", got)
	}
}
