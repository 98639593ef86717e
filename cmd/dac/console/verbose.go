package console

import (
	"context"

	"github.com/mklimuk/dac/dacctx"
)

func SetVerbose(parent context.Context, value bool) context.Context {
	return dacctx.SetVerbose(parent, value)
}

func IsVerbose(ctx context.Context) bool {
	return dacctx.IsVerbose(ctx)
}
