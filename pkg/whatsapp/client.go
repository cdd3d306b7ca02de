package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
)

// Client talks to the Meta Graph API on behalf of one WhatsApp business
// number. Replying to a message id first marks it read and shows a typing
// indicator, which keeps farmers from re-sending while the pipeline runs.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	log         logger.ILogger
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

func NewClient(baseURL, accessToken string, log logger.ILogger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{},
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) post(ctx context.Context, phoneNumberID string, body *MessageRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.log.Error("whatsapp", "graph api error", map[string]interface{}{
			"status": res.StatusCode, "url": url, "body": string(resBody),
		})
		return fmt.Errorf("graph api status %d: %s", res.StatusCode, string(resBody))
	}
	return nil
}

// send optionally acknowledges the inbound message before delivering the
// outbound one. Indicator failures are not fatal.
func (c *Client) send(ctx context.Context, messageID, phoneNumberID string, body *MessageRequest) error {
	if messageID != "" {
		ack := &MessageRequest{
			MessagingProduct: "whatsapp",
			Status:           "read",
			MessageID:        messageID,
			TypingIndicator:  &TypingIndicator{Type: "text"},
		}
		if err := c.post(ctx, phoneNumberID, ack); err != nil {
			c.log.Warn("whatsapp", "typing indicator failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return c.post(ctx, phoneNumberID, body)
}

func (c *Client) SendText(ctx context.Context, phoneNumberID, to, text string) error {
	return c.send(ctx, "", phoneNumberID, &MessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &TextBody{Body: text},
	})
}

func (c *Client) SendWelcomeMenu(ctx context.Context, messageID, phoneNumberID, to string) error {
	return c.send(ctx, messageID, phoneNumberID, &MessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type: "list",
			Body: InteractiveBody{Text: "कृपया आगे बढ़ने के लिए एक श्रेणी चुनें।"},
			Action: InteractiveAction{
				Button: "Choose Category",
				Sections: []Section{{
					Title: "Categories",
					Rows: []Row{
						{ID: string(entity.CategoryWeather), Title: "मौसम जानकारी"},
						{ID: string(entity.CategoryDisease), Title: "कृषि रोग प्रबंधन"},
						{ID: string(entity.CategoryInsect), Title: "कृषि कीट प्रबंधन"},
						{ID: string(entity.CategoryFertilizer), Title: "कृषि उर्वरक उपयोग"},
						{ID: string(entity.CategoryWeed), Title: "कृषि खरपतवार नियंत्रण"},
						{ID: string(entity.CategoryVariety), Title: "कृषि किस्में व बुवाई समय"},
						{ID: string(entity.CategoryOther), Title: "कृषि अन्य"},
					},
				}},
			},
		},
	})
}

func (c *Client) SendQueryConfirmationMenu(ctx context.Context, messageID, phoneNumberID, to string) error {
	return c.send(ctx, messageID, phoneNumberID, &MessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type: "button",
			Body: InteractiveBody{Text: "क्या आप और सवाल पूछना चाहते हैं या आपके सवाल पूरे हो गए हैं?"},
			Action: InteractiveAction{
				Buttons: []Button{
					{Type: "reply", Reply: ReplyButton{ID: ButtonQueryContinue, Title: "➕ और जानकारी जोड़ें"}},
					{Type: "reply", Reply: ReplyButton{ID: ButtonQueryDone, Title: "✅ जानकारी पूरी हो गई है"}},
				},
			},
		},
	})
}

func (c *Client) SendCropConfirmationMenu(ctx context.Context, messageID, phoneNumberID, to, cropNameHi string) error {
	return c.send(ctx, messageID, phoneNumberID, &MessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type: "button",
			Body: InteractiveBody{Text: fmt.Sprintf("क्या आप %s के बारे में जानना चाहते हैं?", cropNameHi)},
			Action: InteractiveAction{
				Buttons: []Button{
					{Type: "reply", Reply: ReplyButton{ID: ButtonCropConfirmYes, Title: "हाँ"}},
					{Type: "reply", Reply: ReplyButton{ID: ButtonCropConfirmNo, Title: "नहीं"}},
				},
			},
		},
	})
}

func (c *Client) SendAmbiguousCropMenu(ctx context.Context, messageID, phoneNumberID, to, titleText string, options []entity.CropOption) error {
	if len(options) > 3 {
		options = options[:3]
	}
	buttons := make([]Button, 0, len(options))
	for _, opt := range options {
		buttons = append(buttons, Button{Type: "reply", Reply: ReplyButton{ID: opt.ID, Title: opt.Title}})
	}
	return c.send(ctx, messageID, phoneNumberID, &MessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type:   "button",
			Body:   InteractiveBody{Text: titleText},
			Action: InteractiveAction{Buttons: buttons},
		},
	})
}

const districtsPerPage = 8

// SendDistrictMenu shows one page of the district list with prev/next rows,
// staying inside the 10-row interactive list limit.
func (c *Client) SendDistrictMenu(ctx context.Context, messageID, phoneNumberID, to string, districts []string, page int) error {
	total := len(districts)
	maxPage := 0
	if total > 0 {
		maxPage = (total - 1) / districtsPerPage
	}
	if page < 0 {
		page = 0
	}
	if page > maxPage {
		page = maxPage
	}

	start := page * districtsPerPage
	end := start + districtsPerPage
	if end > total {
		end = total
	}

	rows := make([]Row, 0, 10)
	for i, name := range districts[start:end] {
		title := name
		if len([]rune(title)) > 24 {
			title = string([]rune(title)[:24])
		}
		rows = append(rows, Row{ID: fmt.Sprintf("%s%d", RowDistrictPrefix, start+i), Title: title})
	}
	if page > 0 {
		rows = append(rows, Row{ID: RowDistrictPrev, Title: "⬅️ पिछला (Back)"})
	}
	if page < maxPage {
		rows = append(rows, Row{ID: RowDistrictNext, Title: "➡️ अगला (Next)"})
	}
	if len(rows) > 10 {
		rows = rows[:10]
	}

	bodyText := "कृपया अपना ज़िला चुनें:"
	if maxPage > 0 {
		bodyText = fmt.Sprintf("कृपया अपना ज़िला चुनें: (पेज %d/%d)", page+1, maxPage+1)
	}

	return c.send(ctx, messageID, phoneNumberID, &MessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type: "list",
			Body: InteractiveBody{Text: bodyText},
			Action: InteractiveAction{
				Button:   "ज़िला चुनें",
				Sections: []Section{{Title: "हरियाणा के ज़िले", Rows: rows}},
			},
		},
	})
}

func (c *Client) RequestLocation(ctx context.Context, phoneNumberID, to, text string) error {
	return c.send(ctx, "", phoneNumberID, &MessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type:   "location_request_message",
			Body:   InteractiveBody{Text: text},
			Action: InteractiveAction{Name: "send_location"},
		},
	})
}

// GetMediaInfo resolves a media id to its temporary download URL.
func (c *Client) GetMediaInfo(ctx context.Context, mediaID string) (*MediaInfo, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph api status %d: %s", res.StatusCode, string(resBody))
	}

	var info MediaInfo
	if err := json.Unmarshal(resBody, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DownloadMedia fetches media bytes from a resolved URL.
func (c *Client) DownloadMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("media download status %d: %s", res.StatusCode, string(body))
	}
	return io.ReadAll(res.Body)
}

// DownloadByID resolves and downloads in one step.
func (c *Client) DownloadByID(ctx context.Context, mediaID string) ([]byte, string, error) {
	info, err := c.GetMediaInfo(ctx, mediaID)
	if err != nil {
		return nil, "", err
	}
	data, err := c.DownloadMedia(ctx, info.URL)
	if err != nil {
		return nil, "", err
	}
	return data, info.MimeType, nil
}
