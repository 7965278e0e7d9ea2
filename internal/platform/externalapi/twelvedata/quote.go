package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"stock_tracker/internal/feature/instruments/domain/entity"
	instrumentsusecase "stock_tracker/internal/feature/instruments/usecase"
	monitorusecase "stock_tracker/internal/feature/monitor/usecase"
	"stock_tracker/internal/platform/externalapi/twelvedata/dto"
)

// QuoteClient はTwelve Data外部APIから最新株価を取得するQuoteSource実装です。
type QuoteClient struct {
	cfg    Config
	client *resty.Client
}

// QuoteClientがQuoteSourceを実装していることをコンパイル時に検証します。
var (
	_ instrumentsusecase.QuoteSource = (*QuoteClient)(nil)
	_ monitorusecase.QuoteSource     = (*QuoteClient)(nil)
)

// NewQuoteClient は指定された設定とHTTPクライアントでQuoteClientの新しいインスタンスを生成します。
// リトライは行いません。失敗は呼び出し側で次のサイクルに持ち越されます。
func NewQuoteClient(cfg Config, httpClient *http.Client) *QuoteClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	rc := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &QuoteClient{cfg: cfg, client: rc}
}

// GetQuote はTwelve Data APIから銘柄の最新価格と名称を取得します。
// 数値の価格が得られない場合はentity.ErrQuoteUnavailableをラップしたエラーを返します。
func (q *QuoteClient) GetQuote(ctx context.Context, symbol string) (*entity.Quote, error) {
	resp, err := q.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetQueryParam("apikey", q.cfg.TwelveDataAPIKey).
		Get("/quote")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("twelvedata http %d", resp.StatusCode())
	}

	// JSONレスポンスをDTOにデコード
	var body dto.QuoteResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode quote for %s: %w", symbol, err)
	}
	if body.Status == "error" {
		return nil, fmt.Errorf("no price available for %s: %s: %w", symbol, body.Message, entity.ErrQuoteUnavailable)
	}

	// 終値をパース
	price, err := strconv.ParseFloat(strings.TrimSpace(body.Close), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, fmt.Errorf("no price available for %s: %w", symbol, entity.ErrQuoteUnavailable)
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		name = symbol
	}
	sym := body.Symbol
	if sym == "" {
		sym = symbol
	}
	return &entity.Quote{Symbol: sym, DisplayName: name, Price: price}, nil
}
