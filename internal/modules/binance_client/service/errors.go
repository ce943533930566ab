package service

import (
	"context"
	"errors"
	"net"

	"github.com/adshao/go-binance/v2/common"

	"funding_bot/internal/exchange"
	"funding_bot/pkg/metrics"
)

// normalize переводит ошибку go-binance в *exchange.Error.
func normalize(op string, err error) error {
	if err == nil {
		return nil
	}
	e := &exchange.Error{Kind: exchange.KindUnknown, Op: op, Msg: err.Error(), Err: err}

	var apiErr *common.APIError
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		e.Code, e.Msg = apiErr.Code, apiErr.Message
		switch apiErr.Code {
		case -2011, -2013:
			e.Kind = exchange.KindOrderNotFound
		case 0, -1001, -1003, -1007:
			// 0 - тело ответа не разобралось (обычно 5xx)
			e.Kind = exchange.KindTransient
		default:
			e.Kind = exchange.KindRejected
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		e.Kind = exchange.KindTransient
	case errors.As(err, &netErr):
		e.Kind = exchange.KindTransient
	}

	metrics.ExchangeErrors.WithLabelValues(op, e.Kind.String()).Inc()
	return e
}
