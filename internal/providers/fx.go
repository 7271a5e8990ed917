package providers

import (
	"github.com/smallbiznis/lis/internal/providers/email"
	"github.com/smallbiznis/lis/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
