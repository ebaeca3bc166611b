package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"restopos-backend/internal/catalog"
	"restopos-backend/internal/models"
	"restopos-backend/internal/orders"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// RemoteError: Sunucu isteği işledi ama başarısız cevap döndü
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sunucu %d döndü: %s", e.Status, e.Message)
}

// HTTPSubmitter: Sunucunun manuel sipariş ve ürün uçlarını fiber client ile çağırır
type HTTPSubmitter struct {
	BaseURL    string
	CookieName string
	Token      string
	Timeout    time.Duration
}

func NewHTTPSubmitter(baseURL, cookieName string, timeout time.Duration) *HTTPSubmitter {
	return &HTTPSubmitter{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		CookieName: cookieName,
		Timeout:    timeout,
	}
}

func (s *HTTPSubmitter) timeout(ctx context.Context) time.Duration {
	t := s.Timeout
	if t <= 0 {
		t = 10 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < t {
			t = left
		}
	}
	return t
}

func (s *HTTPSubmitter) authorize(a *fiber.Agent) *fiber.Agent {
	if s.Token != "" {
		a.Cookie(s.CookieName, s.Token)
	}
	return a
}

func (s *HTTPSubmitter) do(ctx context.Context, a *fiber.Agent, want int, out any) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return err
	}
	code, body, errs := a.Timeout(s.timeout(ctx)).Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code != want {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		if e.Error == "" {
			e.Error = string(body)
		}
		return &RemoteError{Status: code, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// Login: Oturum açar, sonraki isteklerde kullanılacak token'ı saklar
func (s *HTTPSubmitter) Login(ctx context.Context, email, password string) error {
	var res struct {
		Token string `json:"token"`
	}
	a := fiber.Post(s.BaseURL + "/api/auth/login").JSON(fiber.Map{"email": email, "password": password})
	if err := s.do(ctx, a, fiber.StatusOK, &res); err != nil {
		return err
	}
	if res.Token == "" {
		return errors.New("sunucu token döndürmedi")
	}
	s.Token = res.Token
	return nil
}

// Ping: Sunucu ulaşılabilir mi
func (s *HTTPSubmitter) Ping(ctx context.Context) error {
	return s.do(ctx, fiber.Get(s.BaseURL+"/api/health"), fiber.StatusOK, nil)
}

func (s *HTTPSubmitter) SubmitOrder(ctx context.Context, o Order) (uint, error) {
	req := orders.ManualOrderRequest{
		TableID:   o.TableID,
		Status:    o.Status,
		Items:     make([]orders.ItemInput, 0, len(o.Items)),
		ClientRef: o.LocalID,
	}
	for _, it := range o.Items {
		req.Items = append(req.Items, orders.ItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	var res orders.OrderResponse
	a := s.authorize(fiber.Post(s.BaseURL + "/api/orders/manual")).JSON(req)
	if err := s.do(ctx, a, fiber.StatusCreated, &res); err != nil {
		return 0, err
	}
	return res.ID, nil
}

func (s *HTTPSubmitter) FetchProducts(ctx context.Context) ([]Product, error) {
	var res []catalog.ProductResponse
	a := s.authorize(fiber.Get(s.BaseURL + "/api/products?status=" + string(models.ProductActive)))
	if err := s.do(ctx, a, fiber.StatusOK, &res); err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(res))
	for _, p := range res {
		out = append(out, Product{
			ID:             p.ID,
			Name:           p.Name,
			Price:          decimal.NewFromFloat(p.Price).Round(2),
			IsQuantifiable: p.IsQuantifiable,
			Quantity:       p.Quantity,
		})
	}
	return out, nil
}
