package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/pawmart/storefront/internal/auth"
	"github.com/pawmart/storefront/internal/cart"
	"github.com/pawmart/storefront/internal/catalog"
	"github.com/pawmart/storefront/internal/checkout"
	"github.com/pawmart/storefront/internal/games"
	"github.com/pawmart/storefront/internal/httpx"
	"github.com/pawmart/storefront/internal/payment"
	"github.com/pawmart/storefront/internal/video"
)

type app struct {
	log      *slog.Logger
	session  *auth.Session
	agg      *cart.Aggregator
	carts    *cart.Client
	items    *catalog.Client
	orders   *checkout.OrdersClient
	checkout *checkout.Service
	payments *payment.Client
	videos   *video.Client
	registry *games.Registry
	board    *games.Leaderboard
}

func newRouter(a app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(a.log))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")

	api.POST("/auth/signup", signUpHandler(a.session))
	api.POST("/auth/confirm", confirmSignUpHandler(a.session))
	api.POST("/auth/signin", signInHandler(a.session))
	api.POST("/auth/signout", auth.Middleware(a.session), signOutHandler(a.session))

	api.GET("/items", listItemsHandler(a.items))
	api.GET("/items/:id", getItemHandler(a.items))
	api.POST("/items", auth.Middleware(a.session), auth.RequireRole("admin"), createItemHandler(a.items))
	api.DELETE("/items/:id", auth.Middleware(a.session), auth.RequireRole("admin"), deleteItemHandler(a.items))

	cg := api.Group("/cart", auth.Middleware(a.session))
	cg.GET("", viewCartHandler(a.agg))
	cg.POST("/items", addCartItemHandler(a.carts, a.agg))
	cg.DELETE("/items/:id", removeCartItemHandler(a.agg))

	co := api.Group("/checkout", auth.Middleware(a.session))
	co.POST("", beginCheckoutHandler(a.checkout))
	co.GET("", checkoutStateHandler(a.checkout))
	co.POST("/address", setAddressHandler(a.checkout))
	co.POST("/next", advanceCheckoutHandler(a.checkout))

	api.POST("/payment/callback", paymentCallbackHandler(a.checkout, a.payments))

	api.GET("/orders", auth.Middleware(a.session), listOrdersHandler(a.orders))
	api.GET("/orders/:id/status", auth.Middleware(a.session), orderStatusHandler(a.orders))

	api.GET("/videos", videoFeedHandler(a.videos))

	api.GET("/games", listGamesHandler(a.registry))
	api.POST("/games/:name/score", auth.Middleware(a.session), submitScoreHandler(a.board))
	api.GET("/games/:name/leaderboard", leaderboardHandler(a.board))

	return r
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

//
// ---------- auth ----------
//

func signUpHandler(s *auth.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cred auth.Credentials
		if err := c.BindJSON(&cred); err != nil {
			fail(c, http.StatusBadRequest, errors.New("bad json"))
			return
		}
		if err := s.SignUp(c.Request.Context(), cred); err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func confirmSignUpHandler(s *auth.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email"`
			Code  string `json:"code"`
		}
		if err := c.BindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, errors.New("bad json"))
			return
		}
		if err := s.ConfirmSignUp(c.Request.Context(), req.Email, req.Code); err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func signInHandler(s *auth.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cred auth.Credentials
		if err := c.BindJSON(&cred); err != nil {
			fail(c, http.StatusBadRequest, errors.New("bad json"))
			return
		}
		id, tok, err := s.SignIn(c.Request.Context(), cred)
		if err != nil {
			fail(c, http.StatusUnauthorized, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"identity": id, "tokens": tok})
	}
}

func signOutHandler(s *auth.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = s.SignOut(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

//
// ---------- catalog ----------
//

// listItemsHandler godoc
// @Summary List catalog items
// @Produce json
// @Success 200 {array} catalog.Item
// @Router /api/items [get]
func listItemsHandler(items *catalog.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := items.Items(c.Request.Context())
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func getItemHandler(items *catalog.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, errors.New("bad item id"))
			return
		}
		it, err := items.Item(c.Request.Context(), id)
		if errors.Is(err, catalog.ErrNotFound) {
			fail(c, http.StatusNotFound, err)
			return
		}
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"item":      it,
			"thumbnail": it.Thumbnail(),
			"gallery":   it.Gallery(),
		})
	}
}

// createItemHandler accepts a multipart form: an "item" JSON field plus any
// number of image files, which are pushed through the API's pre-signed URLs.
func createItemHandler(items *catalog.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			fail(c, http.StatusBadRequest, errors.New("multipart form required"))
			return
		}
		raw, ok := form.Value["item"]
		if !ok || len(raw) == 0 {
			fail(c, http.StatusBadRequest, errors.New("missing item field"))
			return
		}
		var it catalog.Item
		if err := json.Unmarshal([]byte(raw[0]), &it); err != nil {
			fail(c, http.StatusBadRequest, errors.New("bad item json"))
			return
		}

		var uploads []catalog.Upload
		for _, fh := range form.File["images"] {
			f, err := fh.Open()
			if err != nil {
				fail(c, http.StatusBadRequest, err)
				return
			}
			body, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				fail(c, http.StatusBadRequest, err)
				return
			}
			uploads = append(uploads, catalog.Upload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Body:        body,
			})
		}

		if err := items.Create(c.Request.Context(), &it, uploads); err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	}
}

func deleteItemHandler(items *catalog.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, errors.New("bad item id"))
			return
		}
		if err := items.Delete(c.Request.Context(), id); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				fail(c, http.StatusNotFound, err)
				return
			}
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

//
// ---------- cart ----------
//

// viewCartHandler godoc
// @Summary Aggregated cart view for the signed-in user
// @Produce json
// @Success 200 {object} cart.View
// @Router /api/cart [get]
func viewCartHandler(agg *cart.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		view, err := agg.Load(c.Request.Context(), id.UserID)
		if errors.Is(err, cart.ErrSuperseded) {
			c.Status(http.StatusNoContent)
			return
		}
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func addCartItemHandler(carts *cart.Client, agg *cart.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		var req struct {
			ItemID   int64 `json:"itemId"`
			Quantity int   `json:"quantity"`
		}
		if err := c.BindJSON(&req); err != nil || req.ItemID == 0 || req.Quantity <= 0 {
			fail(c, http.StatusBadRequest, errors.New("bad json"))
			return
		}
		if err := carts.AddItem(c.Request.Context(), id.UserID, req.ItemID, req.Quantity); err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		view, err := agg.Load(c.Request.Context(), id.UserID)
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func removeCartItemHandler(agg *cart.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		cartItemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, errors.New("bad cart item id"))
			return
		}
		view, err := agg.Remove(c.Request.Context(), id.UserID, cartItemID)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				fail(c, http.StatusNotFound, err)
				return
			}
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

//
// ---------- checkout ----------
//

func checkoutStateJSON(f *checkout.Flow) gin.H {
	return gin.H{
		"stage":           f.Stage().String(),
		"total":           f.Total(),
		"providerOrderId": f.ProviderOrderID(),
	}
}

func beginCheckoutHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		f, err := svc.Begin(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, checkout.ErrEmptyCart) {
				fail(c, http.StatusBadRequest, err)
				return
			}
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, checkoutStateJSON(f))
	}
}

func checkoutStateHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		f, ok := svc.FlowFor(id.UserID)
		if !ok {
			fail(c, http.StatusNotFound, checkout.ErrNoActiveFlow)
			return
		}
		c.JSON(http.StatusOK, checkoutStateJSON(f))
	}
}

func setAddressHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		f, ok := svc.FlowFor(id.UserID)
		if !ok {
			fail(c, http.StatusNotFound, checkout.ErrNoActiveFlow)
			return
		}
		var a checkout.UserAddress
		if err := c.BindJSON(&a); err != nil {
			fail(c, http.StatusBadRequest, errors.New("bad json"))
			return
		}
		if err := f.SetAddress(c.Request.Context(), a); err != nil {
			fail(c, http.StatusConflict, err)
			return
		}
		c.JSON(http.StatusOK, checkoutStateJSON(f))
	}
}

// advanceCheckoutHandler godoc
// @Summary Advance the checkout wizard one stage
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/checkout/next [post]
func advanceCheckoutHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		f, ok := svc.FlowFor(id.UserID)
		if !ok {
			fail(c, http.StatusNotFound, checkout.ErrNoActiveFlow)
			return
		}
		if _, err := f.Next(c.Request.Context()); err != nil {
			if errors.Is(err, checkout.ErrFlowFinished) {
				fail(c, http.StatusConflict, err)
				return
			}
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, checkoutStateJSON(f))
	}
}

// paymentCallbackHandler is the hosted checkout's success callback: signature
// check, then verify-and-finalize through the pending flow.
func paymentCallbackHandler(svc *checkout.Service, pay *payment.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cb payment.Callback
		if err := c.BindJSON(&cb); err != nil {
			fail(c, http.StatusBadRequest, errors.New("bad json"))
			return
		}
		if !pay.VerifySignature(cb) {
			fail(c, http.StatusUnauthorized, errors.New("bad signature"))
			return
		}
		if err := svc.Complete(c.Request.Context(), cb); err != nil {
			if errors.Is(err, checkout.ErrUnknownPayment) {
				fail(c, http.StatusNotFound, err)
				return
			}
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

//
// ---------- orders / videos / games ----------
//

func listOrdersHandler(orders *checkout.OrdersClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		out, err := orders.List(c.Request.Context(), id.UserID)
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func orderStatusHandler(orders *checkout.OrdersClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, errors.New("bad order id"))
			return
		}
		status, err := orders.Status(c.Request.Context(), id)
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}

func videoFeedHandler(videos *video.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		urls, err := videos.FeedURLs(c.Request.Context(), c.Query("tags"), c.Query("moods"))
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, urls)
	}
}

func listGamesHandler(reg *games.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, reg.Names())
	}
}

func submitScoreHandler(board *games.Leaderboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		var req struct {
			Score int `json:"score"`
		}
		if err := c.BindJSON(&req); err != nil || req.Score < 0 {
			fail(c, http.StatusBadRequest, errors.New("bad json"))
			return
		}
		if err := board.Submit(c.Request.Context(), c.Param("name"), id.UserID, req.Score); err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func leaderboardHandler(board *games.Leaderboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, _ := strconv.ParseInt(c.DefaultQuery("n", "10"), 10, 64)
		top, err := board.Top(c.Request.Context(), c.Param("name"), n)
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, top)
	}
}
