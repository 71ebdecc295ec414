package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/membership/internal/clock"
	"github.com/smallbiznis/membership/internal/config"
	"github.com/smallbiznis/membership/internal/gateway"
	gatewaydomain "github.com/smallbiznis/membership/internal/gateway/domain"
	"github.com/smallbiznis/membership/internal/identity"
	orderdomain "github.com/smallbiznis/membership/internal/order/domain"
	orderrepository "github.com/smallbiznis/membership/internal/order/repository"
	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
	subscriptionrepository "github.com/smallbiznis/membership/internal/subscription/repository"
	userdomain "github.com/smallbiznis/membership/internal/user/domain"
	userrepository "github.com/smallbiznis/membership/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manual fakes

type plainGateway struct{ name string }

func (g plainGateway) Name() string { return g.name }

type refreshingGateway struct {
	name  string
	err   error
	calls int
	apply func(*subscriptiondomain.Subscription)
}

func (g *refreshingGateway) Name() string { return g.name }

func (g *refreshingGateway) RefreshSubscription(ctx context.Context, s *subscriptiondomain.Subscription) error {
	g.calls++
	if g.err != nil {
		return g.err
	}
	if g.apply != nil {
		g.apply(s)
	}
	return nil
}

type cancellingGateway struct {
	name  string
	err   error
	calls int
	hook  func(ctx context.Context, s *subscriptiondomain.Subscription)
}

func (g *cancellingGateway) Name() string { return g.name }

func (g *cancellingGateway) CancelSubscription(ctx context.Context, s *subscriptiondomain.Subscription) error {
	g.calls++
	if g.hook != nil {
		g.hook(ctx, s)
	}
	return g.err
}

type orderCancellingGateway struct {
	name string
	refs []subscriptiondomain.OrderRef
}

func (g *orderCancellingGateway) Name() string { return g.name }

func (g *orderCancellingGateway) CancelOrder(ctx context.Context, ref subscriptiondomain.OrderRef) error {
	g.refs = append(g.refs, ref)
	return nil
}

type sentMail struct {
	to       []string
	template string
	data     map[string]any
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return m.err
}

func (m *recordingMailer) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, template: templateName, data: data})
	return m.err
}

type testEnv struct {
	svc    *Service
	db     *gorm.DB
	clock  *clock.FakeClock
	mailer *recordingMailer
}

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&subscriptiondomain.Subscription{}, &orderdomain.Order{}, &userdomain.User{}))
	return conn
}

func newTestEnv(t *testing.T, site config.SiteSettings, gateways ...gatewaydomain.Gateway) *testEnv {
	t.Helper()
	conn := setupTestDB(t)
	fake := clock.NewFakeClock(testNow)
	mailer := &recordingMailer{}

	svc := NewService(ServiceParam{
		DB:        conn,
		Log:       zap.NewNop(),
		Clock:     fake,
		Repo:      subscriptionrepository.Provide(),
		OrderRepo: orderrepository.Provide(),
		UserRepo:  userrepository.Provide(),
		Gateways:  gateway.NewRegistry(gateways...),
		Email:     mailer,
		Site:      config.StaticSiteSettings(site),
	}).(*Service)

	return &testEnv{svc: svc, db: conn, clock: fake, mailer: mailer}
}

func (e *testEnv) addOrder(t *testing.T, txn string, at time.Time, total string) {
	t.Helper()
	require.NoError(t, e.db.Create(&orderdomain.Order{
		UserID:                    5,
		SubscriptionTransactionID: txn,
		Gateway:                   "stripe",
		GatewayEnvironment:        "live",
		Total:                     decimal.RequireFromString(total),
		Status:                    "success",
		Timestamp:                 at,
	}).Error)
}

func createRequest(txn string, userID int64) subscriptiondomain.CreateRequest {
	return subscriptiondomain.CreateRequest{
		UserID:                    userID,
		MembershipLevelID:         2,
		Gateway:                   "stripe",
		GatewayEnvironment:        "live",
		SubscriptionTransactionID: txn,
		BillingAmount:             decimal.RequireFromString("9.99"),
		CycleNumber:               1,
		CyclePeriod:               subscriptiondomain.CycleMonth,
	}
}

func TestCreateInfersDatesFromOrders(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()

	orderAt := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	env.addOrder(t, "sub_123", orderAt, "9.99")

	sub, err := env.svc.Create(ctx, createRequest("sub_123", 5))
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.NotZero(t, sub.ID)

	require.NotNil(t, sub.StartDate)
	assert.True(t, orderAt.Equal(*sub.StartDate))
	require.NotNil(t, sub.NextPaymentDate)
	assert.True(t, orderAt.AddDate(0, 1, 0).Equal(*sub.NextPaymentDate))

	initial, err := env.svc.InitialPayment(ctx, sub)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("9.99").Equal(initial))

	stored, err := env.svc.Load(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, subscriptiondomain.StatusActive, stored.Status)
	assert.Equal(t, int64(5), stored.UserID)
	assert.Equal(t, int64(2), stored.MembershipLevelID)
	assert.True(t, orderAt.Equal(*stored.StartDate))
}

func TestCreateRejectsMissingFields(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})

	mutations := map[string]func(*subscriptiondomain.CreateRequest){
		"user":        func(r *subscriptiondomain.CreateRequest) { r.UserID = 0 },
		"level":       func(r *subscriptiondomain.CreateRequest) { r.MembershipLevelID = 0 },
		"transaction": func(r *subscriptiondomain.CreateRequest) { r.SubscriptionTransactionID = " " },
		"gateway":     func(r *subscriptiondomain.CreateRequest) { r.Gateway = "" },
		"environment": func(r *subscriptiondomain.CreateRequest) { r.GatewayEnvironment = "" },
	}
	for name, mutate := range mutations {
		req := createRequest("sub_"+name, 5)
		mutate(&req)
		sub, err := env.svc.Create(context.Background(), req)
		assert.Nil(t, sub, name)
		assert.ErrorIs(t, err, subscriptiondomain.ErrMissingRequiredField, name)
	}

	var count int64
	require.NoError(t, env.db.Model(&subscriptiondomain.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateRejectsDuplicateNaturalKey(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()

	_, err := env.svc.Create(ctx, createRequest("sub_dup", 5))
	require.NoError(t, err)

	sub, err := env.svc.Create(ctx, createRequest("sub_dup", 6))
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, subscriptiondomain.ErrDuplicateSubscription)

	req := createRequest("sub_dup", 6)
	req.GatewayEnvironment = "sandbox"
	sub, err = env.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.NotNil(t, sub)
}

func TestListMultiValueFilterIsUnionOfEqualities(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()
	for i, user := range []int64{1, 2, 3, 2} {
		_, err := env.svc.Create(ctx, createRequest("sub_"+string(rune('a'+i)), user))
		require.NoError(t, err)
	}

	ids := func(items []*subscriptiondomain.Subscription) []int64 {
		out := make([]int64, 0, len(items))
		for _, item := range items {
			out = append(out, item.ID)
		}
		return out
	}

	both, err := env.svc.List(ctx, subscriptiondomain.ListArgs{UserID: []int64{1, 2}})
	require.NoError(t, err)
	one, err := env.svc.List(ctx, subscriptiondomain.ListArgs{UserID: []int64{1}})
	require.NoError(t, err)
	two, err := env.svc.List(ctx, subscriptiondomain.ListArgs{UserID: []int64{2}})
	require.NoError(t, err)

	assert.Len(t, both, 3)
	assert.ElementsMatch(t, ids(both), append(ids(one), ids(two)...))
}

func TestListNilAndEmptyFilters(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()
	_, err := env.svc.Create(ctx, createRequest("sub_a", 1))
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, createRequest("sub_b", 2))
	require.NoError(t, err)

	all, err := env.svc.List(ctx, subscriptiondomain.ListArgs{})
	require.NoError(t, err)
	unfiltered, err := env.svc.List(ctx, subscriptiondomain.ListArgs{Gateway: nil})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Len(t, unfiltered, 2)

	blank, err := env.svc.List(ctx, subscriptiondomain.ListArgs{Gateway: []string{""}})
	require.NoError(t, err)
	assert.Empty(t, blank)

	none, err := env.svc.List(ctx, subscriptiondomain.ListArgs{UserID: []int64{}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListRejectsUnsafeOrderBy(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()
	_, err := env.svc.Create(ctx, createRequest("sub_a", 1))
	require.NoError(t, err)

	for _, orderBy := range []string{"id; DROP TABLE membership_subscriptions", "id DESC -- x", "(id)", "id'"} {
		items, err := env.svc.List(ctx, subscriptiondomain.ListArgs{UserID: []int64{1}, OrderBy: orderBy})
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items, orderBy)
	}

	items, err := env.svc.List(ctx, subscriptiondomain.ListArgs{OrderBy: "`id` ASC, startdate DESC"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestListOrderingAndLimit(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()
	for i, txn := range []string{"sub_a", "sub_b", "sub_c"} {
		env.addOrder(t, txn, testNow.AddDate(0, 0, -10+i), "1")
		_, err := env.svc.Create(ctx, createRequest(txn, 1))
		require.NoError(t, err)
	}

	items, err := env.svc.List(ctx, subscriptiondomain.ListArgs{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "sub_c", items[0].SubscriptionTransactionID)

	limited, err := env.svc.List(ctx, subscriptiondomain.ListArgs{OrderBy: "startdate ASC"}.WithLimit(2))
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "sub_a", limited[0].SubscriptionTransactionID)
}

func TestGetEmptyArgs(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()
	created, err := env.svc.Create(ctx, createRequest("sub_a", 1))
	require.NoError(t, err)

	sub, err := env.svc.Get(ctx, subscriptiondomain.ListArgs{})
	require.NoError(t, err)
	assert.Nil(t, sub)

	sub, err = env.svc.Get(ctx, subscriptiondomain.ListArgs{ID: []int64{0}})
	require.NoError(t, err)
	assert.Nil(t, sub)

	sub, err = env.svc.Get(ctx, subscriptiondomain.ListArgs{ID: []int64{created.ID}})
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, created.ID, sub.ID)
}

func TestFindByTransaction(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()
	created, err := env.svc.Create(ctx, createRequest("sub_a", 1))
	require.NoError(t, err)

	sub, err := env.svc.FindByTransaction(ctx, "", "stripe", "live")
	require.NoError(t, err)
	assert.Nil(t, sub)

	sub, err = env.svc.FindByTransaction(ctx, "sub_a", "stripe", "sandbox")
	require.NoError(t, err)
	assert.Nil(t, sub)

	sub, err = env.svc.FindByTransaction(ctx, "sub_a", "stripe", "live")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, created.ID, sub.ID)
}

func TestListForUser(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()

	_, err := env.svc.Create(ctx, createRequest("sub_a", 7))
	require.NoError(t, err)
	levelThree := createRequest("sub_b", 7)
	levelThree.MembershipLevelID = 3
	_, err = env.svc.Create(ctx, levelThree)
	require.NoError(t, err)
	cancelled := createRequest("sub_c", 7)
	cancelled.Status = subscriptiondomain.StatusCancelled
	_, err = env.svc.Create(ctx, cancelled)
	require.NoError(t, err)

	items, err := env.svc.ListForUser(ctx, 0, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, items)

	current := identity.WithUserID(ctx, 7)
	items, err = env.svc.ListForUser(current, 0, nil, nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = env.svc.ListForUser(ctx, 7, []int64{3}, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "sub_b", items[0].SubscriptionTransactionID)

	items, err = env.svc.ListForUser(ctx, 7, nil, []subscriptiondomain.Status{subscriptiondomain.StatusActive, subscriptiondomain.StatusCancelled})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestSaveNormalizesStatus(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()

	sub, err := env.svc.Create(ctx, createRequest("sub_a", 1))
	require.NoError(t, err)

	end := testNow.AddDate(0, 1, 0)
	sub.EndDate = &end
	_, err = env.svc.Save(ctx, sub)
	require.NoError(t, err)
	stored, err := env.svc.Load(ctx, sub.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.EndDate)

	env.clock.Advance(time.Hour)
	stored.Status = subscriptiondomain.StatusCancelled
	_, err = env.svc.Save(ctx, stored)
	require.NoError(t, err)
	reloaded, err := env.svc.Load(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.EndDate)
	assert.True(t, testNow.Add(time.Hour).Equal(*reloaded.EndDate))
	assert.Nil(t, reloaded.NextPaymentDate)
}

func TestSaveRequiresGatewayKey(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings())
	sub := &subscriptiondomain.Subscription{UserID: 1, Gateway: "stripe", GatewayEnvironment: "live"}

	id, err := env.svc.Save(context.Background(), sub)
	assert.Zero(t, id)
	assert.ErrorIs(t, err, subscriptiondomain.ErrMissingGatewayKey)
	assert.Zero(t, sub.ID)
}

func TestSaveRoundTripFromMap(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings())
	ctx := context.Background()

	values := map[string]any{
		"user_id":                     "11",
		"membership_level_id":         4,
		"gateway":                     "check",
		"gateway_environment":         "sandbox",
		"subscription_transaction_id": "chk_1",
		"startdate":                   "2024-01-02 03:04:05",
		"enddate":                     "",
		"next_payment_date":           "2024-02-02 03:04:05",
		"billing_amount":              "12.50",
		"cycle_number":                "1",
		"cycle_period":                "Month",
		"billing_limit":               6,
		"trial_amount":                0.5,
		"trial_limit":                 1,
		"status":                      "active",
	}
	sub := subscriptiondomain.FromMap(values)
	id, err := env.svc.Save(ctx, sub)
	require.NoError(t, err)
	require.NotZero(t, id)

	stored, err := env.svc.Load(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, int64(11), stored.UserID)
	assert.Equal(t, int64(4), stored.MembershipLevelID)
	assert.Equal(t, "check", stored.Gateway)
	assert.Equal(t, "sandbox", stored.GatewayEnvironment)
	assert.Equal(t, "chk_1", stored.SubscriptionTransactionID)
	assert.Equal(t, "2024-01-02 03:04:05", subscriptiondomain.FormatDate(stored.StartDate))
	assert.Equal(t, "", subscriptiondomain.FormatDate(stored.EndDate))
	assert.Equal(t, "2024-02-02 03:04:05", subscriptiondomain.FormatDate(stored.NextPaymentDate))
	assert.True(t, decimal.RequireFromString("12.50").Equal(stored.BillingAmount))
	assert.Equal(t, 1, stored.CycleNumber)
	assert.Equal(t, subscriptiondomain.CycleMonth, stored.CyclePeriod)
	assert.Equal(t, 6, stored.BillingLimit)
	assert.True(t, decimal.RequireFromString("0.5").Equal(stored.TrialAmount))
	assert.Equal(t, 1, stored.TrialLimit)
	assert.Equal(t, subscriptiondomain.StatusActive, stored.Status)
}

func TestUpdateDelegatesToRefresher(t *testing.T) {
	next := testNow.AddDate(0, 0, 14)
	gw := &refreshingGateway{name: "stripe", apply: func(s *subscriptiondomain.Subscription) {
		s.NextPaymentDate = &next
	}}
	env := newTestEnv(t, config.DefaultSiteSettings(), gw)
	ctx := context.Background()

	env.addOrder(t, "sub_r", testNow.AddDate(0, -2, 0), "5")
	sub, err := env.svc.Create(ctx, createRequest("sub_r", 1))
	require.NoError(t, err)

	assert.Equal(t, 1, gw.calls)
	require.NotNil(t, sub.NextPaymentDate)
	assert.True(t, next.Equal(*sub.NextPaymentDate))
	// history is not consulted when the gateway refreshes
	assert.True(t, testNow.Equal(*sub.StartDate))
}

func TestUpdateSavesWhenRefreshFails(t *testing.T) {
	gw := &refreshingGateway{name: "stripe", err: errors.New("stripe down")}
	env := newTestEnv(t, config.DefaultSiteSettings(), gw)

	sub, err := env.svc.Create(context.Background(), createRequest("sub_r", 1))
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.NotZero(t, sub.ID)
}

func TestUpdateDuringCheckoutKeepsNextPaymentDate(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	orderAt := testNow.AddDate(0, 0, -3)
	env.addOrder(t, "sub_c", orderAt, "9.99")

	preset := testNow.AddDate(0, 0, 30)
	req := createRequest("sub_c", 1)
	req.NextPaymentDate = &preset

	sub, err := env.svc.Create(subscriptiondomain.WithCheckout(context.Background()), req)
	require.NoError(t, err)
	assert.True(t, preset.Equal(*sub.NextPaymentDate))

	ok, err := env.svc.Update(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, orderAt.AddDate(0, 1, 0).Equal(*sub.NextPaymentDate))
}

func TestCancelTwiceWithStaleInstance(t *testing.T) {
	gw := &cancellingGateway{name: "stripe"}
	env := newTestEnv(t, config.DefaultSiteSettings(), gw)
	ctx, _ := subscriptiondomain.WithCancelGuard(context.Background())

	created, err := env.svc.Create(ctx, createRequest("sub_x", 1))
	require.NoError(t, err)
	first, err := env.svc.Load(ctx, created.ID)
	require.NoError(t, err)
	stale, err := env.svc.Load(ctx, created.ID)
	require.NoError(t, err)

	ok, err := env.svc.Cancel(ctx, first)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, subscriptiondomain.StatusCancelled, first.Status)

	ok, err = env.svc.Cancel(ctx, stale)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, subscriptiondomain.StatusActive, stale.Status)

	// an already-cancelled record may pass through again
	ok, err = env.svc.Cancel(ctx, first)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, gw.calls)
}

func TestCancelRefusesReentrantGatewayCallback(t *testing.T) {
	gw := &cancellingGateway{name: "stripe"}
	env := newTestEnv(t, config.DefaultSiteSettings(), gw)

	var innerOK bool
	var innerErr error
	gw.hook = func(ctx context.Context, s *subscriptiondomain.Subscription) {
		innerOK, innerErr = env.svc.Cancel(ctx, s)
	}

	sub, err := env.svc.Create(context.Background(), createRequest("sub_y", 1))
	require.NoError(t, err)

	ok, err := env.svc.Cancel(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, innerErr)
	assert.False(t, innerOK)
	assert.Equal(t, 1, gw.calls)
}

func TestCancelFailureStillCancelsLocallyAndNotifiesAdmin(t *testing.T) {
	site := config.DefaultSiteSettings()
	site.SiteName = "Acme"
	site.AdminEmail = "admin@example.com"
	site.AdminUserEditURL = "https://example.com/wp-admin/user-edit.php"

	gw := &cancellingGateway{name: "stripe", err: errors.New("card network unavailable")}
	env := newTestEnv(t, site, gw)
	ctx := context.Background()
	require.NoError(t, env.db.Create(&userdomain.User{ID: 5, Email: "jane@example.com", Login: "jane", DisplayName: "Jane"}).Error)

	sub, err := env.svc.Create(ctx, createRequest("sub_f", 5))
	require.NoError(t, err)

	ok, err := env.svc.Cancel(ctx, sub)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := env.svc.Load(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusCancelled, stored.Status)
	require.NotNil(t, stored.EndDate)
	assert.True(t, testNow.Equal(*stored.EndDate))

	require.Len(t, env.mailer.sent, 1)
	mail := env.mailer.sent[0]
	assert.Equal(t, []string{"admin@example.com"}, mail.to)
	assert.Equal(t, "jane@example.com", mail.data["user_email"])
	assert.Equal(t, "jane", mail.data["user_login"])
	assert.Equal(t, "Jane", mail.data["user_display_name"])
	assert.Equal(t, sub.ID, mail.data["subscription_id"])
	assert.Equal(t, "sub_f", mail.data["subscription_transaction_id"])
	assert.Equal(t, "https://example.com/wp-admin/user-edit.php?user_id=5", mail.data["admin_url"])
}

func TestCancelUnsupportedGateway(t *testing.T) {
	site := config.DefaultSiteSettings()
	site.AdminEmail = "admin@example.com"
	env := newTestEnv(t, site, plainGateway{name: "free"})
	ctx := context.Background()

	req := createRequest("free_1", 1)
	req.Gateway = "free"
	sub, err := env.svc.Create(ctx, req)
	require.NoError(t, err)

	ok, err := env.svc.Cancel(ctx, sub)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, subscriptiondomain.StatusCancelled, sub.Status)
	assert.Len(t, env.mailer.sent, 1)
}

func TestCancelLegacyOrderCanceller(t *testing.T) {
	gw := &orderCancellingGateway{name: "check"}
	env := newTestEnv(t, config.DefaultSiteSettings(), gw)
	ctx := context.Background()

	req := createRequest("chk_9", 3)
	req.Gateway = "check"
	sub, err := env.svc.Create(ctx, req)
	require.NoError(t, err)

	ok, err := env.svc.Cancel(ctx, sub)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, gw.refs, 1)
	assert.Equal(t, subscriptiondomain.OrderRef{
		UserID:                    3,
		MembershipLevelID:         2,
		Gateway:                   "check",
		GatewayEnvironment:        "live",
		SubscriptionTransactionID: "chk_9",
	}, gw.refs[0])
	assert.Empty(t, env.mailer.sent)
}

func TestInitialPaymentIsCached(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()
	env.addOrder(t, "sub_p", testNow.AddDate(0, 0, -5), "9.99")

	sub, err := env.svc.Create(ctx, createRequest("sub_p", 5))
	require.NoError(t, err)

	first, err := env.svc.InitialPayment(ctx, sub)
	require.NoError(t, err)
	env.addOrder(t, "sub_p", testNow.AddDate(0, 0, -30), "1.00")
	second, err := env.svc.InitialPayment(ctx, sub)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.True(t, decimal.RequireFromString("9.99").Equal(second))

	fresh, err := env.svc.Load(ctx, sub.ID)
	require.NoError(t, err)
	recomputed, err := env.svc.InitialPayment(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.00").Equal(recomputed))
}

func TestInitialPaymentWithoutOrders(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	sub, err := env.svc.Create(context.Background(), createRequest("sub_none", 5))
	require.NoError(t, err)

	amount, err := env.svc.InitialPayment(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, amount.IsZero())
}

func TestDateAccessors(t *testing.T) {
	site := config.DefaultSiteSettings()
	site.Timezone = "Asia/Jakarta"
	site.DateFormat = "02/01/2006 15:04"
	env := newTestEnv(t, site)

	start := time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)
	sub := &subscriptiondomain.Subscription{StartDate: &start}

	v, ok := env.svc.StartDate(sub, subscriptiondomain.FormatTimestamp, false)
	assert.True(t, ok)
	assert.Equal(t, "1705348800", v)

	v, ok = env.svc.StartDate(sub, subscriptiondomain.FormatDateFormat, false)
	assert.True(t, ok)
	assert.Equal(t, "15/01/2024 20:00", v)

	v, ok = env.svc.StartDate(sub, subscriptiondomain.FormatDateFormat, true)
	assert.True(t, ok)
	assert.Equal(t, "16/01/2024 03:00", v)

	v, ok = env.svc.StartDate(sub, "2006-01-02", true)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-16", v)

	_, ok = env.svc.EndDate(sub, subscriptiondomain.FormatTimestamp, false)
	assert.False(t, ok)

	zero := time.Time{}
	sub.NextPaymentDate = &zero
	v, ok = env.svc.NextPaymentDate(sub, "2006-01-02", false)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestHandleRecurringPaymentCompleted(t *testing.T) {
	env := newTestEnv(t, config.DefaultSiteSettings(), plainGateway{name: "stripe"})
	ctx := context.Background()

	firstOrder := testNow.AddDate(0, -1, 0)
	env.addOrder(t, "sub_rp", firstOrder, "9.99")
	sub, err := env.svc.Create(ctx, createRequest("sub_rp", 5))
	require.NoError(t, err)
	assert.True(t, testNow.Equal(*sub.NextPaymentDate))

	env.addOrder(t, "sub_rp", testNow, "9.99")
	ref := subscriptiondomain.OrderRefFor(sub)
	require.NoError(t, env.svc.HandleRecurringPaymentCompleted(ctx, ref))

	stored, err := env.svc.Load(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, testNow.AddDate(0, 1, 0).Equal(*stored.NextPaymentDate))
	assert.True(t, firstOrder.Equal(*stored.StartDate))

	ref.SubscriptionTransactionID = "sub_missing"
	assert.ErrorIs(t, env.svc.HandleRecurringPaymentCompleted(ctx, ref), subscriptiondomain.ErrSubscriptionNotFound)
}
