package bbdc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func respond(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	w.Header().Set("content-type", "application/json")
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return m
}

func TestGetCaptchaStripsSensitiveFields(t *testing.T) {
	imgBytes := []byte("fake-image-bytes")
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imgBytes)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/getLoginCaptchaImage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("authorization"); got != "" {
			t.Errorf("login captcha fetch must not carry auth, got %q", got)
		}
		respond(t, w, `{"success":true,"data":{"accountIdNric":"S1234567A","captchaToken":"tok-1","verifyCodeId":"id-1","image":"`+dataURI+`"}}`)
	}))
	defer srv.Close()

	ch, err := NewWithBaseURL(srv.URL).GetCaptcha(context.Background(), CaptchaLogin, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ch.Image, imgBytes) {
		t.Errorf("image bytes = %q, want %q", ch.Image, imgBytes)
	}
	if _, ok := ch.Fields["accountIdNric"]; ok {
		t.Error("accountIdNric leaked past the client")
	}
	if _, ok := ch.Fields["image"]; ok {
		t.Error("image data URI left in echo fields")
	}
	if ch.Fields["captchaToken"] != "tok-1" || ch.Fields["verifyCodeId"] != "id-1" {
		t.Errorf("opaque fields not preserved: %v", ch.Fields)
	}
}

func TestGetCaptchaBookingSendsAuthHeaders(t *testing.T) {
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("img"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/booking/manage/getCaptchaImage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("authorization"); got != "bearer-1" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("jsessionid"); got != "jsess-1" {
			t.Errorf("jsessionid = %q", got)
		}
		respond(t, w, `{"success":true,"data":{"image":"`+dataURI+`"}}`)
	}))
	defer srv.Close()

	auth := &Auth{Bearer: "bearer-1", JSessionID: "jsess-1"}
	if _, err := NewWithBaseURL(srv.URL).GetCaptcha(context.Background(), CaptchaBooking, auth); err != nil {
		t.Fatal(err)
	}
}

func TestLoginEchoesChallengeFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		for k, want := range map[string]string{
			"userId":          "user-1",
			"userPass":        "pass-1",
			"verifyCodeValue": "AB12",
			"captchaToken":    "tok-1",
		} {
			if body[k] != want {
				t.Errorf("body[%q] = %v, want %q", k, body[k], want)
			}
		}
		respond(t, w, `{"success":true,"data":{"tokenContent":"bearer-1"}}`)
	}))
	defer srv.Close()

	ch := Challenge{Fields: map[string]any{"captchaToken": "tok-1"}}
	res, err := NewWithBaseURL(srv.URL).Login(context.Background(), "user-1", "pass-1", "AB12", ch)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.BearerToken != "bearer-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestLoginRejectionIsAValueNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, `{"success":false,"message":"verify code is incorrect"}`)
	}))
	defer srv.Close()

	res, err := NewWithBaseURL(srv.URL).Login(context.Background(), "u", "p", "XXXX", Challenge{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Error("rejection reported as success")
	}
	if res.Message != "verify code is incorrect" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestSessionContext(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantOK bool
		want   SessionContext
	}{
		{
			"live session",
			`{"success":true,"data":{"activeCourseList":[{"authToken":"jsess-1","courseType":"3A"}]}}`,
			true,
			SessionContext{AuthToken: "jsess-1", CourseType: "3A"},
		},
		{"dead session", `{"success":false,"message":"token expired"}`, false, SessionContext{}},
		{"no active course", `{"success":true,"data":{"activeCourseList":[]}}`, false, SessionContext{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/account/listAccountCourseType" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("authorization"); got != "bearer-1" {
					t.Errorf("authorization = %q", got)
				}
				respond(t, w, tt.body)
			}))
			defer srv.Close()

			sc, ok, err := NewWithBaseURL(srv.URL).SessionContext(context.Background(), "bearer-1")
			if err != nil {
				t.Fatal(err)
			}
			if ok != tt.wantOK || sc != tt.want {
				t.Fatalf("got (%+v, %v), want (%+v, %v)", sc, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestListSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/booking/c3practical/listC3PracticalSlotReleased" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["courseType"] != "3A" || body["releasedSlotMonth"] != "202405" {
			t.Errorf("unexpected query body: %v", body)
		}
		if body["stageSubDesc"] != "Practical Lesson" {
			t.Errorf("stageSubDesc = %v", body["stageSubDesc"])
		}
		respond(t, w, `{"success":true,"data":{"releasedSlotListGroupByDay":{
			"2024-05-01 00:00:00":[{"slotId":101,"slotRefName":"Session 2","startTime":"08:30","endTime":"10:10"}]
		}}}`)
	}))
	defer srv.Close()

	coll, err := NewWithBaseURL(srv.URL).ListSlots(context.Background(), Auth{Bearer: "b", JSessionID: "j"}, "3A", "202405")
	if err != nil {
		t.Fatal(err)
	}
	slots := coll["2024-05-01 00:00:00"]
	if len(slots) != 1 || slots[0].SlotRefName != "Session 2" {
		t.Fatalf("unexpected collection: %v", coll)
	}
	if slots[0].SlotID.String() != "101" {
		t.Errorf("slotId = %s", slots[0].SlotID)
	}
}

func TestListSlotsNoneReleased(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, `{"success":false,"message":"no slots released"}`)
	}))
	defer srv.Close()

	coll, err := NewWithBaseURL(srv.URL).ListSlots(context.Background(), Auth{}, "3A", "202405")
	if err != nil {
		t.Fatal(err)
	}
	if coll != nil {
		t.Fatalf("want nil collection, got %v", coll)
	}
}

func TestBookMergesPayloadAndReturnsConfirmation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/booking/c3practical/callBookC3PracticalSlot" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["verifyCodeValue"] != "AB12" || body["captchaToken"] != "tok-9" {
			t.Errorf("captcha fields missing: %v", body)
		}
		if body["courseType"] != "3A" {
			t.Errorf("courseType = %v", body["courseType"])
		}
		enc, _ := body["encryptSlotList"].([]any)
		if len(enc) != 1 {
			t.Fatalf("encryptSlotList = %v", body["encryptSlotList"])
		}
		first, _ := enc[0].(map[string]any)
		if first["slotIdEnc"] != "enc-1" || first["bookingProgressEnc"] != "prog-1" {
			t.Errorf("booking tokens altered: %v", first)
		}
		respond(t, w, `{"success":true,"data":{"bookedPracticalSlotList":[{"message":"Booking Confirmed! Session 2 on 01/05/2024"}]}}`)
	}))
	defer srv.Close()

	slot := Slot{SlotID: "101", SlotIDEnc: "enc-1", BookingProgressEnc: "prog-1"}
	ch := Challenge{Fields: map[string]any{"captchaToken": "tok-9"}}
	res, err := NewWithBaseURL(srv.URL).Book(context.Background(), Auth{Bearer: "b", JSessionID: "j"}, "AB12", ch, slot.BookingPayload("3A"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Message != "Booking Confirmed! Session 2 on 01/05/2024" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTransportErrorIsHard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	if _, err := NewWithBaseURL(srv.URL).Login(context.Background(), "u", "p", "XXXX", Challenge{}); err == nil {
		t.Fatal("expected transport error")
	}
}
