package opentelemetry

import (
	"context"

	"github.com/coderi421/ikkatsu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/coderi421/ikkatsu/middlewares/opentelemetry"

type MiddlewareBuilder struct {
	Tracer trace.Tracer
}

func (m *MiddlewareBuilder) Build() ikkatsu.Middleware {
	if m.Tracer == nil {
		// 创建 tracer 实例
		m.Tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return func(next ikkatsu.Handler) ikkatsu.Handler {
		return func(ctx context.Context, oc *ikkatsu.OpContext) *ikkatsu.OpResult {
			spanCtx, span := m.Tracer.Start(ctx, oc.Type+" "+oc.Model.TableName)
			defer span.End()

			span.SetAttributes(attribute.String("op.id", oc.OpID))
			span.SetAttributes(attribute.String("op.type", oc.Type))
			span.SetAttributes(attribute.String("db.table", oc.Model.TableName))
			span.SetAttributes(attribute.Bool("op.fallback", oc.Fallback))
			// 批量 INSERT 拿不到单独的一条语句
			if oc.Query != nil {
				span.SetAttributes(attribute.String("db.statement", oc.Query.SQL))
			}

			res := next(spanCtx, oc)

			span.SetAttributes(attribute.Int64("db.rows_affected", res.Rows))
			if res.Err != nil {
				span.RecordError(res.Err)
			}
			return res
		}
	}
}
