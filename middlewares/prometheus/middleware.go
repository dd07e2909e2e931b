package prometheus

import (
	"context"
	"time"

	"github.com/coderi421/ikkatsu"
	"github.com/prometheus/client_golang/prometheus"
)

type MiddlewareBuilder struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
}

func (m MiddlewareBuilder) Build() ikkatsu.Middleware {
	vector := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name:      m.Name,
		Subsystem: m.Subsystem,
		Namespace: m.Namespace,
		Help:      m.Help,
		Objectives: map[float64]float64{
			0.5:   0.01,
			0.75:  0.01,
			0.90:  0.01,
			0.99:  0.001,  // 99 线
			0.999: 0.0001, // 999 线
		},
	}, []string{"type", "table", "fallback"})

	prometheus.MustRegister(vector)

	return func(next ikkatsu.Handler) ikkatsu.Handler {
		return func(ctx context.Context, oc *ikkatsu.OpContext) *ikkatsu.OpResult {
			// 开始时间
			startTime := time.Now()
			// defer 算结束时间
			defer func() {
				duration := time.Now().Sub(startTime).Milliseconds()
				fallback := "false"
				if oc.Fallback {
					fallback = "true"
				}
				vector.WithLabelValues(oc.Type, oc.Model.TableName, fallback).
					Observe(float64(duration))
			}()
			return next(ctx, oc)
		}
	}
}
