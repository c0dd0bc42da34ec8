package capture

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-lens/core/capture"

var logger = otelslog.NewLogger(scopeName)
