package httphandler

import (
	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/internal/core/view"
)

type (
	AddItemRequest struct {
		ProductID string `json:"product_id"`
	}

	NewsletterRequest struct {
		Email string `json:"email"`
	}

	PageRequest struct {
		Name       string         `json:"name"`
		Properties map[string]any `json:"properties"`
	}

	ScrollRequest struct {
		Percent int `json:"percent"`
	}

	EventRequest struct {
		Type       string         `json:"type"`
		Name       string         `json:"name"`
		Properties map[string]any `json:"properties"`
	}
)

type (
	Action struct {
		Method string            `json:"method"`
		Path   string            `json:"path"`
		Body   map[string]string `json:"body,omitempty"`
	}

	ProductCard struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Image       string `json:"image"`
		Category    string `json:"category"`
		Price       string `json:"price"`
		Add         Action `json:"add"`
	}

	Filter struct {
		Category string `json:"category"`
		Price    string `json:"price"`
		Sort     string `json:"sort"`
	}

	ProductsResponse struct {
		Filter   Filter        `json:"filter"`
		Count    int           `json:"count"`
		Products []ProductCard `json:"products"`
	}

	CartLine struct {
		ProductID string `json:"product_id"`
		Name      string `json:"name"`
		Quantity  int    `json:"quantity"`
		Subtotal  string `json:"subtotal"`
		Remove    Action `json:"remove"`
	}

	Cart struct {
		Lines        []CartLine `json:"lines"`
		Count        int        `json:"count"`
		Total        string     `json:"total"`
		Empty        bool       `json:"empty"`
		EmptyMessage string     `json:"empty_message,omitempty"`
	}

	Notification struct {
		Message        string `json:"message"`
		Kind           string `json:"kind"`
		DismissAfterMS int64  `json:"dismiss_after_ms"`
	}

	CartResponse struct {
		Cart         Cart          `json:"cart"`
		Notification *Notification `json:"notification,omitempty"`
	}

	Redirect struct {
		URL     string `json:"url"`
		AfterMS int64  `json:"after_ms"`
	}

	CheckoutResponse struct {
		Notification Notification `json:"notification"`
		Redirect     *Redirect    `json:"redirect,omitempty"`
	}

	NotificationResponse struct {
		Notification Notification `json:"notification"`
	}

	ScrollResponse struct {
		Reported bool `json:"reported"`
	}

	ActivityResponse struct {
		SessionID string `json:"session_id"`
		Events    int64  `json:"events"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}
)

func toAction(a view.Action) Action {
	return Action{Method: a.Method, Path: a.Path, Body: a.Body}
}

func toProductCards(ps []domain.Product) []ProductCard {
	cards := view.ProductCards(ps)
	res := make([]ProductCard, len(cards))
	for i, c := range cards {
		res[i] = ProductCard{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Image:       c.Image,
			Category:    c.Category,
			Price:       c.PriceLabel,
			Add:         toAction(c.Add),
		}
	}
	return res
}

func toCart(c domain.Cart) Cart {
	v := view.CartSummary(c)
	res := Cart{
		Lines:        make([]CartLine, len(v.Lines)),
		Count:        v.Count,
		Total:        v.Total,
		Empty:        v.Empty,
		EmptyMessage: v.EmptyMessage,
	}
	for i, l := range v.Lines {
		res.Lines[i] = CartLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Subtotal:  l.SubtotalLabel,
			Remove:    toAction(l.Remove),
		}
	}
	return res
}

func toNotification(n domain.Notification) Notification {
	return Notification{
		Message:        n.Message,
		Kind:           string(n.Kind),
		DismissAfterMS: n.DismissAfter.Milliseconds(),
	}
}

func toCheckoutResponse(o domain.CheckoutOutcome) CheckoutResponse {
	res := CheckoutResponse{Notification: toNotification(o.Notification)}
	if o.Redirect.URL != "" {
		res.Redirect = &Redirect{
			URL:     o.Redirect.URL,
			AfterMS: o.Redirect.After.Milliseconds(),
		}
	}
	return res
}

func toFilter(fs domain.FilterState) Filter {
	return Filter{
		Category: string(fs.Category),
		Price:    fs.PriceRange.String(),
		Sort:     string(fs.Sort),
	}
}
