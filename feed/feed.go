package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Asset struct {
	Symbol                   string           `json:"symbol"`
	Name                     string           `json:"name"`
	CurrentPrice             *decimal.Decimal `json:"current_price"`
	PriceChangePercentage24h *decimal.Decimal `json:"price_change_percentage_24h"`
	MarketCap                *decimal.Decimal `json:"market_cap"`
	Image                    string           `json:"image"`
	SparklineIn7d            Sparkline        `json:"sparkline_in_7d"`
}

type Sparkline struct {
	Price []decimal.Decimal `json:"price"`
}

type Client struct {
	baseURL string
	topN    int
	cl      *http.Client
}

func NewClient(baseURL string, topN int) Client {
	return Client{
		baseURL: baseURL,
		topN:    topN,
		cl:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c Client) FetchTopAssets(ctx context.Context) ([]Asset, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.topN))
	q.Set("page", "1")
	q.Set("sparkline", "true")

	reqURL := c.baseURL + "/coins/markets?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса к фиду: %w", err)
	}

	resp, err := c.cl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к фиду: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("фид вернул статус %d", resp.StatusCode)
	}

	var assets []Asset
	if err := json.NewDecoder(resp.Body).Decode(&assets); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа фида: %w", err)
	}
	return assets, nil
}
