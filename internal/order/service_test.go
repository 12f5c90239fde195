package order_test

import (
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"restochain-backend/internal/database"
	"restochain-backend/internal/loyalty"
	"restochain-backend/internal/models"
	"restochain-backend/internal/order"
)

var testLoyalty = loyalty.Config{Divisor: 10000, SilverMin: 100, GoldMin: 500, VIPMin: 1500}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedBranch(t *testing.T, db *gorm.DB) *models.Branch {
	t.Helper()
	branch := models.Branch{Name: "Riverside", IsActive: true}
	require.NoError(t, db.Create(&branch).Error)
	return &branch
}

func seedProduct(t *testing.T, db *gorm.DB, branchID uint, name string, price float64, quantity int) *models.Product {
	t.Helper()
	product := models.Product{
		BranchID:    branchID,
		Name:        name,
		Price:       price,
		Quantity:    quantity,
		IsAvailable: true,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func seedCustomer(t *testing.T, db *gorm.DB, phone string) *models.Customer {
	t.Helper()
	customer := models.Customer{Name: "Linh", Phone: phone, Tier: models.TierBronze}
	require.NoError(t, db.Create(&customer).Error)
	return &customer
}

func productQuantity(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, id).Error)
	return p.Quantity
}

func TestCreate_DecrementsStockAndSnapshotsPrice(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Pho Bo", 55000, 10)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.Equal(t, 6, productQuantity(t, db, product.ID))
	require.Len(t, o.Items, 1)
	assert.Equal(t, 55000.0, o.Items[0].Price)
	assert.Equal(t, 220000.0, o.Total)

	// the decrement left a SALE audit row referencing the order number
	var txs []models.StockTransaction
	require.NoError(t, db.Where("reference = ?", o.OrderNumber).Find(&txs).Error)
	require.Len(t, txs, 1)
	assert.Equal(t, models.StockTxSale, txs[0].Type)
	assert.Equal(t, -4, txs[0].Quantity)
	assert.Equal(t, 10, txs[0].PreviousQuantity)
	assert.Equal(t, 6, txs[0].NewQuantity)
}

func TestCreate_InsufficientStockAbortsWholeOrder(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	first := seedProduct(t, db, branch.ID, "Goi Cuon", 30000, 50)
	second := seedProduct(t, db, branch.ID, "Bun Cha", 45000, 2)

	_, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items: []order.ItemInput{
			{ProductID: first.ID, Quantity: 5},
			{ProductID: second.ID, Quantity: 3},
		},
	})
	require.Error(t, err)

	var itemErr *order.ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, second.ID, itemErr.ProductID)
	assert.Equal(t, "insufficient_stock", itemErr.Reason)
	assert.Equal(t, 3, itemErr.Requested)
	assert.Equal(t, 2, itemErr.Available)

	// no partial decrement survived the rollback
	assert.Equal(t, 50, productQuantity(t, db, first.ID))
	assert.Equal(t, 2, productQuantity(t, db, second.ID))

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCreate_RejectsUnavailableAndForeignProducts(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	other := models.Branch{Name: "Harbor", IsActive: true}
	require.NoError(t, db.Create(&other).Error)

	unavailable := seedProduct(t, db, branch.ID, "Ca Phe", 20000, 10)
	require.NoError(t, db.Model(unavailable).Update("is_available", false).Error)
	foreign := seedProduct(t, db, other.ID, "Tra Da", 10000, 10)

	_, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: unavailable.ID, Quantity: 1}},
	})
	var itemErr *order.ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "unavailable", itemErr.Reason)

	_, err = order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: foreign.ID, Quantity: 1}},
	})
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "not_found", itemErr.Reason)
}

func TestCreate_SoftDeletedProductExcluded(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Banh Mi", 25000, 10)
	require.NoError(t, db.Delete(product).Error)

	_, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	var itemErr *order.ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "not_found", itemErr.Reason)
}

func TestCreate_PromotionUsageCountsInTransaction(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Com Tam", 40000, 10)
	promo := models.Promotion{Code: "WELCOME", DiscountAmount: 15000, MaxUsage: 1, IsActive: true}
	require.NoError(t, db.Create(&promo).Error)

	o, err := order.Create(db, order.CreateInput{
		BranchID:  branch.ID,
		Items:     []order.ItemInput{{ProductID: product.ID, Quantity: 1}},
		PromoCode: "WELCOME",
	})
	require.NoError(t, err)
	assert.Equal(t, 15000.0, o.DiscountAmount)
	assert.Equal(t, 25000.0, o.Total)

	var reloaded models.Promotion
	require.NoError(t, db.First(&reloaded, promo.ID).Error)
	assert.Equal(t, 1, reloaded.UsageCount)

	// usage budget exhausted
	_, err = order.Create(db, order.CreateInput{
		BranchID:  branch.ID,
		Items:     []order.ItemInput{{ProductID: product.ID, Quantity: 1}},
		PromoCode: "WELCOME",
	})
	assert.ErrorIs(t, err, order.ErrPromotionInvalid)

	// the failed order did not decrement stock either
	assert.Equal(t, 9, productQuantity(t, db, product.ID))
}

func TestEditItems_RestoreThenReapply(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Pho Ga", 50000, 10)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 6, productQuantity(t, db, product.ID))

	// 6 restored to 10, then 7 decremented to 3
	edited, err := order.EditItems(db, o.ID, []order.ItemInput{{ProductID: product.ID, Quantity: 7}}, "customer upsized", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, productQuantity(t, db, product.ID))
	assert.Equal(t, 350000.0, edited.Total)

	// only the new item set survives: the replaced rows must not be
	// resurrected by the total update, or Cancel would restore both sets
	var items []models.OrderItem
	require.NoError(t, db.Where("order_id = ?", o.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity)

	cancelled, err := order.Cancel(db, o.ID, "customer left", nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, productQuantity(t, db, product.ID))
}

func TestEditItems_FailedValidationLeavesEverythingUntouched(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Hu Tieu", 42000, 10)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	// restore step is not durable: asking for 99 rolls the whole edit back
	_, err = order.EditItems(db, o.ID, []order.ItemInput{{ProductID: product.ID, Quantity: 99}}, "bulk", nil)
	var itemErr *order.ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "insufficient_stock", itemErr.Reason)

	assert.Equal(t, 6, productQuantity(t, db, product.ID))

	var items []models.OrderItem
	require.NoError(t, db.Where("order_id = ?", o.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
}

func TestEditItems_RejectsNonPendingOrder(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Nem Ran", 35000, 10)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = order.Accept(db, o.ID, branch.ID, nil)
	require.NoError(t, err)

	_, err = order.EditItems(db, o.ID, []order.ItemInput{{ProductID: product.ID, Quantity: 1}}, "late change", nil)
	assert.ErrorIs(t, err, order.ErrOrderNotEditable)
}

func TestCancel_RestoresEveryItem(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	first := seedProduct(t, db, branch.ID, "Bo Kho", 60000, 8)
	second := seedProduct(t, db, branch.ID, "Xoi Ga", 30000, 5)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items: []order.ItemInput{
			{ProductID: first.ID, Quantity: 3},
			{ProductID: second.ID, Quantity: 5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 5, productQuantity(t, db, first.ID))
	require.Equal(t, 0, productQuantity(t, db, second.ID))

	_, err = order.Cancel(db, o.ID, "kitchen closed", nil)
	require.NoError(t, err)
	assert.Equal(t, 8, productQuantity(t, db, first.ID))
	assert.Equal(t, 5, productQuantity(t, db, second.ID))

	// terminal: a second cancel is rejected and restores nothing twice
	_, err = order.Cancel(db, o.ID, "again", nil)
	assert.ErrorIs(t, err, order.ErrOrderTerminal)
	assert.Equal(t, 8, productQuantity(t, db, first.ID))
}

func TestAccept_ReValidatesAvailability(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Cha Ca", 70000, 10)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// product pulled from the menu between placement and accept
	require.NoError(t, db.Model(product).Update("is_available", false).Error)

	_, err = order.Accept(db, o.ID, branch.ID, nil)
	var itemErr *order.ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "unavailable", itemErr.Reason)

	require.NoError(t, db.Model(product).Update("is_available", true).Error)
	accepted, err := order.Accept(db, o.ID, branch.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, accepted.Status)

	// accepting twice is a state conflict
	_, err = order.Accept(db, o.ID, branch.ID, nil)
	assert.ErrorIs(t, err, order.ErrOrderNotPending)
}

func TestMarkReady_RequiresPreparing(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Banh Xeo", 45000, 10)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	// straight from PENDING is rejected
	_, err = order.MarkReady(db, o.ID, branch.ID, nil)
	assert.ErrorIs(t, err, order.ErrOrderNotPreparing)

	_, err = order.Accept(db, o.ID, branch.ID, nil)
	require.NoError(t, err)

	ready, err := order.MarkReady(db, o.ID, branch.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, ready.Status)

	// a READY order can still complete
	_, _, err = order.Complete(db, order.CompleteInput{
		OrderID: o.ID, CallerBranchID: branch.ID, Loyalty: testLoyalty,
	})
	assert.NoError(t, err)
}

func TestAccept_ReValidatesStock(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Bun Rieu", 40000, 10)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// stock adjusted away between placement and accept
	require.NoError(t, db.Model(product).Update("quantity", 0).Error)

	_, err = order.Accept(db, o.ID, branch.ID, nil)
	var itemErr *order.ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "insufficient_stock", itemErr.Reason)
	assert.Equal(t, 2, itemErr.Requested)
	assert.Equal(t, 0, itemErr.Available)

	require.NoError(t, db.Model(product).Update("quantity", 5).Error)
	accepted, err := order.Accept(db, o.ID, branch.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, accepted.Status)
}

func TestCreate_ConcurrentOrdersNeverOversell(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Ga Nuong", 150000, 5)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := order.Create(db, order.CreateInput{
				BranchID: branch.ID,
				Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 3}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var itemErr *order.ItemError
		require.ErrorAs(t, err, &itemErr)
		assert.Equal(t, "insufficient_stock", itemErr.Reason)
		rejected++
	}

	// exactly one order got the stock; 5 - 3 = 2 left
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 2, productQuantity(t, db, product.ID))
}

func TestCreate_RejectsNonPositiveQuantity(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Nuoc Mia", 15000, 10)

	_, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 0}},
	})
	var itemErr *order.ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "invalid_quantity", itemErr.Reason)
	assert.Equal(t, 10, productQuantity(t, db, product.ID))
}

func TestAccept_RejectsForeignBranch(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Mi Quang", 48000, 10)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = order.Accept(db, o.ID, branch.ID+1, nil)
	assert.ErrorIs(t, err, order.ErrBranchMismatch)
}

func TestComplete_CreatesBillAndAwardsPoints(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Lau Thai", 125000, 10)
	customer := seedCustomer(t, db, "0901234567")

	o, err := order.Create(db, order.CreateInput{
		BranchID:   branch.ID,
		CustomerID: &customer.ID,
		Items:      []order.ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	completed, bill, err := order.Complete(db, order.CompleteInput{
		OrderID:        o.ID,
		CallerBranchID: branch.ID,
		PaymentMethod:  "CASH",
		Loyalty:        testLoyalty,
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.Equal(t, models.PaymentStatusPaid, completed.PaymentStatus)

	assert.Equal(t, o.ID, bill.OrderID)
	assert.Equal(t, 125000.0, bill.Subtotal)
	assert.Equal(t, 125000.0, bill.Total)
	assert.Equal(t, customer.Name, bill.CustomerName)
	assert.Equal(t, customer.Phone, bill.CustomerPhone)
	assert.NotEmpty(t, bill.BillNumber)

	// floor(125000 / 10000) = 12 points
	var reloaded models.Customer
	require.NoError(t, db.First(&reloaded, customer.ID).Error)
	assert.Equal(t, 12, reloaded.Points)
	assert.Equal(t, models.TierBronze, reloaded.Tier)
	assert.Equal(t, 125000.0, reloaded.TotalSpent)
	assert.NotNil(t, reloaded.LastOrderDate)
}

func TestComplete_PaymentStatusOverride(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Ca Kho", 80000, 10)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	// invoiced later: completed but not yet paid
	completed, _, err := order.Complete(db, order.CompleteInput{
		OrderID:        o.ID,
		CallerBranchID: branch.ID,
		PaymentStatus:  models.PaymentStatusUnpaid,
		Loyalty:        testLoyalty,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, completed.PaymentStatus)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, o.ID).Error)
	assert.Equal(t, models.PaymentStatusUnpaid, reloaded.PaymentStatus)
}

func TestComplete_SecondAttemptIsRejected(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Bun Bo", 65000, 10)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, _, err = order.Complete(db, order.CompleteInput{
		OrderID: o.ID, CallerBranchID: branch.ID, Loyalty: testLoyalty,
	})
	require.NoError(t, err)

	_, _, err = order.Complete(db, order.CompleteInput{
		OrderID: o.ID, CallerBranchID: branch.ID, Loyalty: testLoyalty,
	})
	assert.ErrorIs(t, err, order.ErrOrderTerminal)

	// exactly one bill exists for the order
	var count int64
	require.NoError(t, db.Model(&models.Bill{}).Where("order_id = ?", o.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestComplete_CancelledOrderCannotComplete(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Che Ba Mau", 22000, 10)

	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = order.Cancel(db, o.ID, "out of time", nil)
	require.NoError(t, err)

	_, _, err = order.Complete(db, order.CompleteInput{
		OrderID: o.ID, CallerBranchID: branch.ID, Loyalty: testLoyalty,
	})
	assert.ErrorIs(t, err, order.ErrOrderTerminal)
}

func TestAuditTrail_RecordsLifecycle(t *testing.T) {
	db := openTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, branch.ID, "Sinh To", 28000, 10)

	actor := uint(7)
	o, err := order.Create(db, order.CreateInput{
		BranchID: branch.ID,
		StaffID:  &actor,
		Items:    []order.ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = order.EditItems(db, o.ID, []order.ItemInput{{ProductID: product.ID, Quantity: 2}}, "extra glass", &actor)
	require.NoError(t, err)
	_, err = order.Cancel(db, o.ID, "no-show", &actor)
	require.NoError(t, err)

	var logs []models.OrderAuditLog
	require.NoError(t, db.Where("order_id = ?", o.ID).Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 3)
	assert.Equal(t, models.OrderActionCreated, logs[0].Action)
	assert.Equal(t, models.OrderActionItemsEdited, logs[1].Action)
	assert.Equal(t, "extra glass", logs[1].Reason)
	assert.Equal(t, models.OrderActionCancelled, logs[2].Action)
	assert.Equal(t, "no-show", logs[2].Reason)
}
