package service

import "context"

// Operator is the signed-in account a request acts for.
type Operator struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type operatorKey struct{}

// WithOperator returns a copy of ctx carrying op. Climate changes made with
// the returned context are attributed to op in the event log.
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFrom returns the operator stored by WithOperator.
func OperatorFrom(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(Operator)
	return op, ok
}

// attribute adds the operator of ctx, if any, to event metadata.
func attribute(ctx context.Context, meta map[string]any) map[string]any {
	op, ok := OperatorFrom(ctx)
	if !ok {
		return meta
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["actor"] = op.Username
	meta["actor_id"] = op.ID
	return meta
}
