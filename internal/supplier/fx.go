package supplier

import (
	"github.com/smallbiznis/lis/internal/supplier/domain"
	"github.com/smallbiznis/lis/internal/supplier/service"
	"go.uber.org/fx"
)

var Module = fx.Module("supplier.service",
	fx.Provide(domain.NewRepository),
	fx.Provide(service.New),
)
