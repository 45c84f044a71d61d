package validation

import (
	"net/http"
	"strings"
	"testing"

	"conhub/utils/errors"
)

type signup struct {
	FirstName string  `json:"firstName" validate:"required,max=50,personname"`
	Username  string  `json:"username" validate:"required,min=3,max=20,username"`
	Bio       *string `json:"bio" validate:"omitnil,max=5"`
}

type event struct {
	Tags      []string `json:"tags" validate:"max=2,dive,min=1,max=8,tag"`
	StartDate string   `json:"startDate" validate:"required,isodate"`
	Owner     string   `json:"owner" validate:"omitempty,objectid"`
	Amount    string   `json:"amount" validate:"omitempty,amount"`
}

type titled struct {
	Name   string  `json:"name" validate:"required,notblank,max=10"`
	Rename *string `json:"rename" validate:"omitnil,notblank"`
}

func strPtr(s string) *string { return &s }

func TestStruct(t *testing.T) {
	cases := []struct {
		name    string
		input   any
		ok      bool
		message string
	}{
		{"valid signup", signup{FirstName: "Zoë O'Neil", Username: "zoe_1"}, true, ""},
		{"missing name", signup{Username: "zoe_1"}, false, "firstName is required"},
		{"digits in name", signup{FirstName: "R2D2", Username: "zoe_1"}, false, "firstName may only contain"},
		{"short username", signup{FirstName: "Zoe", Username: "zo"}, false, "username must be at least 3"},
		{"username punctuation", signup{FirstName: "Zoe", Username: "zoe!"}, false, "username may only contain"},
		{"nil optional", signup{FirstName: "Zoe", Username: "zoe", Bio: nil}, true, ""},
		{"long optional", signup{FirstName: "Zoe", Username: "zoe", Bio: strPtr("toolong")}, false, "bio must be at most 5"},
		{"valid event", event{Tags: []string{"anime", "sci-fi"}, StartDate: "2026-05-01"}, true, ""},
		{"rfc3339 date", event{StartDate: "2026-05-01T10:00:00Z"}, true, ""},
		{"bad date", event{StartDate: "May 1st"}, false, "startDate must be an ISO date"},
		{"too many tags", event{Tags: []string{"a", "b", "c"}, StartDate: "2026-05-01"}, false, "tags must contain at most 2"},
		{"bad tag", event{Tags: []string{"no space"}, StartDate: "2026-05-01"}, false, "may only contain letters, digits and hyphens"},
		{"bad object id", event{StartDate: "2026-05-01", Owner: "xyz"}, false, "owner must be a valid id"},
		{"good object id", event{StartDate: "2026-05-01", Owner: "64b7f0c2a1b2c3d4e5f60718"}, true, ""},
		{"bad amount", event{StartDate: "2026-05-01", Amount: "1.234"}, false, "amount must be a positive amount"},
		{"named", titled{Name: "Expo"}, true, ""},
		{"blank name", titled{Name: "   "}, false, "name must not be blank"},
		{"blank rename", titled{Name: "Expo", Rename: strPtr("\t")}, false, "rename must not be blank"},
		{"good amount", event{StartDate: "2026-05-01", Amount: "12.50"}, true, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Struct(c.input)
			if c.ok {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			apiErr, ok := err.(*errors.APIError)
			if !ok || apiErr.Status != http.StatusBadRequest {
				t.Fatalf("expected 400 APIError, got %#v", err)
			}
			if !strings.Contains(apiErr.Message, c.message) {
				t.Fatalf("message %q does not contain %q", apiErr.Message, c.message)
			}
		})
	}
}

func TestObjectID(t *testing.T) {
	if _, err := ObjectID("64b7f0c2a1b2c3d4e5f60718"); err != nil {
		t.Fatalf("valid id rejected: %v", err)
	}
	for _, bad := range []string{"", "123", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		if _, err := ObjectID(bad); err != errors.ErrInvalidID {
			t.Fatalf("ObjectID(%q) err = %v, want ErrInvalidID", bad, err)
		}
	}
	if _, err := ObjectIDs([]string{"64b7f0c2a1b2c3d4e5f60718", "nope"}); err == nil {
		t.Fatal("ObjectIDs should fail on any bad id")
	}
}

func TestDateRange(t *testing.T) {
	cases := []struct {
		start, end string
		ok         bool
	}{
		{"2026-05-01", "2026-05-03", true},
		{"2026-05-01", "2026-05-01", true},
		{"2026-05-01T09:00:00Z", "2026-05-01T18:00:00+02:00", true},
		{"2026-05-03", "2026-05-01", false},
		{"soon", "2026-05-01", false},
		{"2026-05-01", "", false},
	}
	for _, c := range cases {
		err := DateRange(c.start, c.end)
		if c.ok != (err == nil) {
			t.Errorf("DateRange(%q, %q) = %v, want ok=%v", c.start, c.end, err, c.ok)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Anime", "anime", "SciFi", "", "scifi", "games"})
	want := []string{"anime", "scifi", "games"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NormalizeTags = %v, want %v", got, want)
		}
	}
}
