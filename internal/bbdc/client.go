package bbdc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the live BBDC back-service.
const DefaultBaseURL = "https://booking.bbdc.sg/bbdc-back-service/api"

const (
	loginCaptchaPath   = "/auth/getLoginCaptchaImage"
	loginPath          = "/auth/login"
	courseTypePath     = "/account/listAccountCourseType"
	listSlotsPath      = "/booking/c3practical/listC3PracticalSlotReleased"
	bookingCaptchaPath = "/booking/manage/getCaptchaImage"
	bookSlotPath       = "/booking/c3practical/callBookC3PracticalSlot"
)

// Client wraps the five remote operations as stateless request/response
// exchanges. Non-success responses come back as values for the session layer
// to interpret; only transport failures and malformed payloads are errors.
type Client struct {
	hc   *http.Client
	base string
}

func New() *Client {
	return NewWithBaseURL(DefaultBaseURL)
}

func NewWithBaseURL(base string) *Client {
	return &Client{
		hc:   &http.Client{Timeout: 20 * time.Second},
		base: strings.TrimRight(base, "/"),
	}
}

// envelope is the service's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// GetCaptcha fetches a fresh challenge. The server's accountIdNric field is
// stripped immediately and never leaves this method; the image data-URI is
// popped out of the echo fields and decoded into raw bytes.
func (c *Client) GetCaptcha(ctx context.Context, kind CaptchaKind, auth *Auth) (Challenge, error) {
	path := loginCaptchaPath
	if kind == CaptchaBooking {
		path = bookingCaptchaPath
	}
	env, err := c.post(ctx, path, auth, nil)
	if err != nil {
		return Challenge{}, err
	}
	if !env.Success {
		return Challenge{}, fmt.Errorf("captcha fetch rejected: %s", env.Message)
	}

	var fields map[string]any
	if err := json.Unmarshal(env.Data, &fields); err != nil {
		return Challenge{}, fmt.Errorf("parse captcha challenge: %w", err)
	}
	delete(fields, "accountIdNric")

	dataURI, _ := fields["image"].(string)
	delete(fields, "image")
	img, err := decodeDataURI(dataURI)
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{Image: img, Fields: fields}, nil
}

// Login submits credentials plus a captcha answer, echoing every challenge
// field back verbatim.
func (c *Client) Login(ctx context.Context, username, password, captchaText string, ch Challenge) (LoginResult, error) {
	payload := map[string]any{
		"userId":          username,
		"userPass":        password,
		"verifyCodeValue": captchaText,
	}
	mergeFields(payload, ch.Fields)

	env, err := c.post(ctx, loginPath, nil, payload)
	if err != nil {
		return LoginResult{}, err
	}
	res := LoginResult{Success: env.Success, Message: env.Message}
	if !env.Success {
		return res, nil
	}
	var data struct {
		TokenContent string `json:"tokenContent"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return LoginResult{}, fmt.Errorf("parse login response: %w", err)
	}
	res.BearerToken = data.TokenContent
	return res, nil
}

// SessionContext fetches the session auth token and course type for a bearer
// token. It doubles as the liveness probe: ok false means the session is
// dead and the caller should re-authenticate.
func (c *Client) SessionContext(ctx context.Context, bearer string) (SessionContext, bool, error) {
	env, err := c.post(ctx, courseTypePath, &Auth{Bearer: bearer}, nil)
	if err != nil {
		return SessionContext{}, false, err
	}
	if !env.Success {
		return SessionContext{}, false, nil
	}
	var data struct {
		ActiveCourseList []struct {
			AuthToken  string `json:"authToken"`
			CourseType string `json:"courseType"`
		} `json:"activeCourseList"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return SessionContext{}, false, fmt.Errorf("parse course list: %w", err)
	}
	if len(data.ActiveCourseList) == 0 {
		return SessionContext{}, false, nil
	}
	course := data.ActiveCourseList[0]
	if course.AuthToken == "" {
		return SessionContext{}, false, nil
	}
	return SessionContext{AuthToken: course.AuthToken, CourseType: course.CourseType}, true, nil
}

// ListSlots queries the released practical slots for one month, grouped by
// day. A non-success response means no slots this pass, not an error.
func (c *Client) ListSlots(ctx context.Context, auth Auth, courseType, month string) (SlotCollection, error) {
	payload := map[string]any{
		"courseType":        courseType,
		"releasedSlotMonth": month,
		"stageSubDesc":      "Practical Lesson",
		"subVehicleType":    nil,
		"subStageSubNo":     nil,
	}
	env, err := c.post(ctx, listSlotsPath, &auth, payload)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, nil
	}
	var data struct {
		ReleasedSlotListGroupByDay SlotCollection `json:"releasedSlotListGroupByDay"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("parse slot list: %w", err)
	}
	return data.ReleasedSlotListGroupByDay, nil
}

// Book submits one booking attempt: captcha answer, echoed challenge fields
// and the slot payload merged into a single body.
func (c *Client) Book(ctx context.Context, auth Auth, captchaText string, ch Challenge, slotPayload map[string]any) (BookResult, error) {
	payload := map[string]any{"verifyCodeValue": captchaText}
	mergeFields(payload, ch.Fields)
	mergeFields(payload, slotPayload)

	env, err := c.post(ctx, bookSlotPath, &auth, payload)
	if err != nil {
		return BookResult{}, err
	}
	res := BookResult{Success: env.Success, Message: env.Message}
	if !env.Success {
		return res, nil
	}
	var data struct {
		BookedPracticalSlotList []struct {
			Message string `json:"message"`
		} `json:"bookedPracticalSlotList"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return BookResult{}, fmt.Errorf("parse booking response: %w", err)
	}
	if len(data.BookedPracticalSlotList) > 0 {
		res.Message = data.BookedPracticalSlotList[0].Message
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, path string, auth *Auth, payload any) (envelope, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return envelope{}, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, body)
	if err != nil {
		return envelope{}, err
	}
	if payload != nil {
		req.Header.Set("content-type", "application/json")
	}
	if auth != nil {
		req.Header.Set("authorization", auth.Bearer)
		if auth.JSessionID != "" {
			req.Header.Set("jsessionid", auth.JSessionID)
		}
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("bbdc %s: %w", path, err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return envelope{}, fmt.Errorf("bbdc %s: read response: %w", path, err)
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return envelope{}, fmt.Errorf("bbdc %s: unexpected response (status=%d): %w", path, res.StatusCode, err)
	}
	return env, nil
}

// mergeFields copies src into dst, later merges winning on key collisions.
func mergeFields(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

func decodeDataURI(uri string) ([]byte, error) {
	_, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, fmt.Errorf("captcha image is not a data URI")
	}
	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode captcha image payload: %w", err)
	}
	return img, nil
}
