package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bluberry_store_v1/internal/model"
)

func setupWizardTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "连接测试数据库失败")

	// 内存库每个连接独立，固定为单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.WizardSession{},
		&model.WizardItem{},
		&model.PhotoAsset{},
		&model.ItemPhoto{},
		&model.AppSession{},
	)
	require.NoError(t, err, "数据库迁移失败")
	return db
}

func seedSession(t *testing.T, uow *WizardUnitOfWork, key string) *model.WizardSession {
	ctx := context.Background()
	s := &model.WizardSession{SessionKey: key, Stage: model.WizardStageItems, LastActiveAt: time.Now()}
	require.NoError(t, uow.Sessions.Create(ctx, s))
	return s
}

func TestWizardRepo_GetByKeyPreloadsOrdered(t *testing.T) {
	db := setupWizardTestDB(t)
	uow := NewWizardUnitOfWork(db)
	ctx := context.Background()
	s := seedSession(t, uow, "sess-1")

	second := &model.WizardItem{SessionID: s.ID, ItemKey: "item-b", Position: 1, Name: "B"}
	first := &model.WizardItem{SessionID: s.ID, ItemKey: "item-a", Position: 0, Name: "A"}
	require.NoError(t, uow.Items.CreateBatch(ctx, []*model.WizardItem{second, first}))

	asset := &model.PhotoAsset{SessionID: s.ID, AssetKey: "asset-1", MimeType: "image/png", UploadState: model.PhotoStateUploaded}
	require.NoError(t, uow.Photos.CreateAsset(ctx, asset))
	require.NoError(t, uow.Photos.CreateLinks(ctx, []model.ItemPhoto{{ItemID: first.ID, AssetID: asset.ID}}))

	got, err := uow.Sessions.GetByKey(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "item-a", got.Items[0].ItemKey)
	require.Len(t, got.Items[0].Photos, 1)
	require.NotNil(t, got.Items[0].Photos[0].Asset)
	assert.Equal(t, "asset-1", got.Items[0].Photos[0].Asset.AssetKey)
	assert.Empty(t, got.Items[1].Photos)

	_, err = uow.Sessions.GetByKey(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWizardRepo_MaxPosition(t *testing.T) {
	db := setupWizardTestDB(t)
	uow := NewWizardUnitOfWork(db)
	ctx := context.Background()
	s := seedSession(t, uow, "sess-pos")

	pos, err := uow.Items.MaxPosition(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, pos)

	require.NoError(t, uow.Items.Create(ctx, &model.WizardItem{SessionID: s.ID, ItemKey: "i1", Position: 4}))
	pos, err = uow.Items.MaxPosition(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, pos)
}

func TestWizardRepo_OrphanAssets(t *testing.T) {
	db := setupWizardTestDB(t)
	uow := NewWizardUnitOfWork(db)
	ctx := context.Background()
	s := seedSession(t, uow, "sess-orphan")

	a := &model.WizardItem{SessionID: s.ID, ItemKey: "a", Position: 0}
	b := &model.WizardItem{SessionID: s.ID, ItemKey: "b", Position: 1}
	require.NoError(t, uow.Items.CreateBatch(ctx, []*model.WizardItem{a, b}))

	shared := &model.PhotoAsset{SessionID: s.ID, AssetKey: "shared"}
	own := &model.PhotoAsset{SessionID: s.ID, AssetKey: "own"}
	require.NoError(t, uow.Photos.CreateAsset(ctx, shared))
	require.NoError(t, uow.Photos.CreateAsset(ctx, own))
	require.NoError(t, uow.Photos.CreateLinks(ctx, []model.ItemPhoto{
		{ItemID: a.ID, AssetID: shared.ID, Position: 0},
		{ItemID: a.ID, AssetID: own.ID, Position: 1},
		{ItemID: b.ID, AssetID: shared.ID, Position: 0},
	}))

	ids, err := uow.Photos.DeleteLinksByItem(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{shared.ID, own.ID}, ids)

	orphans, err := uow.Photos.OrphanAssets(ctx, ids)
	require.NoError(t, err)
	require.Len(t, orphans, 1, "共享图片仍被 b 引用")
	assert.Equal(t, "own", orphans[0].AssetKey)
}

func TestWizardRepo_ClearEstimatesAndTransaction(t *testing.T) {
	db := setupWizardTestDB(t)
	uow := NewWizardUnitOfWork(db)
	ctx := context.Background()
	s := seedSession(t, uow, "sess-est")

	tid := int64(901)
	item := &model.WizardItem{SessionID: s.ID, ItemKey: "x", TempProductID: &tid, EstimatePrice: "$10", EstimateSource: model.EstimateSourcePrimaryAI}
	require.NoError(t, uow.Items.Create(ctx, item))

	err := uow.Transaction(ctx, func(tx *WizardUnitOfWork) error {
		if err := tx.Items.ClearEstimates(ctx, s.ID); err != nil {
			return err
		}
		return tx.Sessions.UpdateFields(ctx, s.ID, map[string]interface{}{"temp_product_ids": nil})
	})
	require.NoError(t, err)

	items, err := uow.Items.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].TempProductID)
	assert.Empty(t, items[0].EstimatePrice)
}

func TestWizardRepo_FindIdle(t *testing.T) {
	db := setupWizardTestDB(t)
	uow := NewWizardUnitOfWork(db)
	ctx := context.Background()
	now := time.Now()

	old := &model.WizardSession{SessionKey: "old", Stage: model.WizardStageContact, LastActiveAt: now.Add(-48 * time.Hour)}
	fresh := &model.WizardSession{SessionKey: "fresh", Stage: model.WizardStageItems, LastActiveAt: now}
	done := &model.WizardSession{SessionKey: "done", Stage: model.WizardStageSubmitted, LastActiveAt: now.Add(-48 * time.Hour)}
	for _, s := range []*model.WizardSession{old, fresh, done} {
		require.NoError(t, uow.Sessions.Create(ctx, s))
	}

	idle, err := uow.Sessions.FindIdle(ctx, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, idle, 1)
	assert.Equal(t, "old", idle[0].SessionKey)

	require.NoError(t, uow.Sessions.MarkExpired(ctx, old.ID))
	got, err := uow.Sessions.GetByKey(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, model.WizardStageExpired, got.Stage)
}

func TestAppSessionRepo(t *testing.T) {
	db := setupWizardTestDB(t)
	repo := NewAppSessionRepository(db)
	ctx := context.Background()
	now := time.Now()

	live := &model.AppSession{SessionKey: "live", AccessToken: "a1", ExpiresAt: now.Add(time.Hour)}
	stale := &model.AppSession{SessionKey: "stale", AccessToken: "a2", ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	require.NoError(t, repo.UpdateTokens(ctx, "live", "a3", "r3"))
	got, err := repo.GetByKey(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "a3", got.AccessToken)
	assert.Equal(t, "r3", got.RefreshToken)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, "live"))
	_, err = repo.GetByKey(ctx, "live")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
