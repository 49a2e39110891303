package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/crm_lifecycle/models"
)

func autoTransferConfig(targetSalesID string, days int) models.SystemConfig {
	return models.SystemConfig{
		ConfigType: models.ConfigTypeCustomerAutoTransfer,
		ConfigKey:  "default",
		ConfigValue: primitive.M{
			"targetSalesId":       targetSalesID,
			"targetSalesName":     "销售三",
			"daysWithoutProgress": int32(days),
		},
		IsEnabled: true,
	}
}

func TestAutoTransferJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.clock.cur

	stale := f.create(t, "久未推进", f.s1.ID, f.a1.ID)
	stalePooled := f.create(t, "公海久未推进", "", "")
	owned := f.create(t, "已归目标销售", f.s3.ID, "")
	progressed := f.create(t, "已推进", f.s2.ID, "")
	_, err := f.svc.ChangeProgress(ctx, progressed.ID.Hex(), models.CustomerProgressNormal, f.s2, "")
	require.NoError(t, err)

	f.clock.cur = base.Add(9 * 24 * time.Hour)
	fresh := f.create(t, "新客户", f.s1.ID, "")

	f.store.PutSystemConfig(autoTransferConfig(f.s3.ID, 7))

	job := NewAutoTransferJob(f.store, f.svc)
	job.now = func() time.Time { return base.Add(10 * 24 * time.Hour) }

	report, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, &AutoTransferReport{Checked: 4, Transferred: 2, Skipped: 1}, report)

	moved := f.reload(t, stale.ID.Hex())
	assert.Equal(t, f.s3.ID, moved.RelatedSalesID)
	assert.Empty(t, moved.RelatedAgentID)

	rows := f.assignmentRows(t, stale.ID.Hex())
	last := rows[len(rows)-1]
	assert.Equal(t, models.OperationTypeAssign, last.OperationType)
	assert.Equal(t, models.SystemActorID, last.OperatorID)
	assert.Equal(t, "超过7天无进展，系统自动转移", last.Remark)

	claimed := f.reload(t, stalePooled.ID.Hex())
	assert.Equal(t, f.s3.ID, claimed.RelatedSalesID)
	assert.Equal(t, models.CustomerProgressNormal, claimed.Progress)
	rows = f.assignmentRows(t, stalePooled.ID.Hex())
	require.Len(t, rows, 1)
	assert.Equal(t, models.OperationTypeClaim, rows[0].OperationType)

	assert.Equal(t, owned.Version, f.reload(t, owned.ID.Hex()).Version)
	assert.Equal(t, f.s1.ID, f.reload(t, fresh.ID.Hex()).RelatedSalesID)

	// 再次执行不会重复转移
	report, err = job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, &AutoTransferReport{Checked: 3, Skipped: 2}, report)
}

func TestAutoTransferJobWithoutConfig(t *testing.T) {
	f := newFixture(t)
	f.create(t, "无配置", f.s1.ID, "")

	report, err := NewAutoTransferJob(f.store, f.svc).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &AutoTransferReport{}, report)
}

func TestAutoTransferJobCountsFailures(t *testing.T) {
	f := newFixture(t)
	base := f.clock.cur
	c := f.create(t, "目标不存在", f.s1.ID, "")
	f.store.PutSystemConfig(autoTransferConfig("000000000000000000000000", 3))

	job := NewAutoTransferJob(f.store, f.svc)
	job.now = func() time.Time { return base.Add(5 * 24 * time.Hour) }

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, f.s1.ID, f.reload(t, c.ID.Hex()).RelatedSalesID)
}

func TestAutoTransferJobRejectsBrokenConfig(t *testing.T) {
	f := newFixture(t)
	f.store.PutSystemConfig(autoTransferConfig("", 3))

	_, err := NewAutoTransferJob(f.store, f.svc).Run(context.Background())
	assert.Error(t, err)
}

type legacyTransferConfig struct {
	Target string `bson:"targetSalesId"`
	Days   int64  `bson:"daysWithoutProgress"`
}

func TestGetAutoTransferConfig(t *testing.T) {
	want := &models.AutoTransferConfig{TargetSalesID: "s1", TargetSalesName: "销售一", DaysWithoutProgress: 5}

	cases := []struct {
		name  string
		value interface{}
	}{
		{"struct", models.AutoTransferConfig{TargetSalesID: "s1", TargetSalesName: "销售一", DaysWithoutProgress: 5}},
		{"pointer", &models.AutoTransferConfig{TargetSalesID: "s1", TargetSalesName: "销售一", DaysWithoutProgress: 5}},
		{"bson.D", bson.D{{Key: "targetSalesId", Value: "s1"}, {Key: "targetSalesName", Value: "销售一"}, {Key: "daysWithoutProgress", Value: int32(5)}}},
		{"bson.M", bson.M{"targetSalesId": "s1", "targetSalesName": "销售一", "daysWithoutProgress": int64(5)}},
		{"json map", map[string]interface{}{"targetSalesId": "s1", "targetSalesName": "销售一", "daysWithoutProgress": float64(5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := GetAutoTransferConfig(models.SystemConfig{ConfigValue: tc.value})
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	got, err := GetAutoTransferConfig(models.SystemConfig{ConfigValue: legacyTransferConfig{Target: "s2", Days: 3}})
	require.NoError(t, err)
	assert.Equal(t, "s2", got.TargetSalesID)
	assert.Equal(t, 3, got.DaysWithoutProgress)

	_, err = GetAutoTransferConfig(models.SystemConfig{ConfigValue: bson.M{"targetSalesId": "s1", "daysWithoutProgress": "5"}})
	assert.Error(t, err)
	_, err = GetAutoTransferConfig(models.SystemConfig{ConfigValue: bson.M{"targetSalesId": "s1", "daysWithoutProgress": 0}})
	assert.Error(t, err)
	_, err = GetAutoTransferConfig(models.SystemConfig{ConfigValue: (*models.AutoTransferConfig)(nil)})
	assert.Error(t, err)
}

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()

	require.NoError(t, s.AddJob("auto-transfer", DefaultAutoTransferCron, func() {}))
	assert.Error(t, s.AddJob("auto-transfer", "*/5 * * * * *", func() {}))
	assert.Error(t, s.AddJob("broken", "not a cron", func() {}))
	assert.Equal(t, []string{"auto-transfer"}, s.JobNames())

	s.Start()
	<-s.Stop().Done()
}
