package handler

import (
	"github.com/gin-gonic/gin"
)

// Router 路由依赖
type Router struct {
	Balance  *BalanceHandler
	Order    *OrderHandler
	Fee      *FeeHandler
	Health   *HealthHandler
	Identity IdentityResolver
	AdminIDs []int64
}

// NewEngine 创建 gin 引擎并注册全部路由
func NewEngine(r *Router) *gin.Engine {
	engine := gin.New()
	engine.Use(Recovery(), Trace(), AccessLog())
	r.Register(engine)
	return engine
}

// Register 注册路由
func (r *Router) Register(engine *gin.Engine) {
	if r.Health != nil {
		engine.GET("/health", r.Health.Health)
	}

	identity := r.Identity
	if identity == nil {
		identity = BearerIdentityResolver{}
	}

	v1 := engine.Group("/v1")

	// 费率和汇总查询无需认证，写操作和流水查询仅管理员
	fees := v1.Group("/fees")
	fees.GET("/total", r.Fee.GetTotalFees)
	fees.GET("/rate/:pair", r.Fee.GetFeeRate)

	feeAdmin := fees.Group("", Auth(identity), RequireAdmin(r.AdminIDs))
	feeAdmin.PUT("/rate/:pair", r.Fee.UpdateFeeRate)
	feeAdmin.POST("/transactions", r.Fee.RecordFeeTransaction)
	feeAdmin.GET("/transactions", r.Fee.ListFeeTransactions)

	authed := v1.Group("", Auth(identity))

	balance := authed.Group("/balance")
	balance.GET("", r.Balance.ListBalances)
	balance.POST("/add", r.Balance.AddBalance)
	balance.GET("/:currency", r.Balance.GetBalance)

	orders := authed.Group("/orders")
	orders.POST("", r.Order.CreateOrder)
	orders.GET("", r.Order.ListOrders)
	orders.GET("/:id", r.Order.GetOrder)
	orders.DELETE("/:id", r.Order.CancelOrder)
	orders.GET("/:id/events", r.Order.ListOrderEvents)

	// 成交信号来自撮合侧，普通用户不可调用
	fills := v1.Group("/orders", Auth(identity), RequireAdmin(r.AdminIDs))
	fills.POST("/:id/fill", r.Order.FillOrder)
}
