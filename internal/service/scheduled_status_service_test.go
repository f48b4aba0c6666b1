package service

import (
	"testing"
	"time"

	"github.com/souschef/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduledStatusService(t *testing.T, today string) (*ScheduledStatusService, time.Time) {
	t.Helper()
	gdb := setupServiceTestDB(t)
	svc := NewScheduledStatusService(gdb, nil)
	day := mustDay(t, today)
	svc.now = func() time.Time { return day.Add(9 * time.Hour) }
	return svc, day
}

func reloadClient(t *testing.T, id uint) db.Client {
	t.Helper()
	var c db.Client
	require.NoError(t, db.DB.First(&c, id).Error)
	return c
}

func TestScheduleWithEndDateCreatesPair(t *testing.T) {
	svc, today := newScheduledStatusService(t, "2024-03-04")
	client := createClient(t, svc.db, clientFixture{first: "Marie", last: "Tremblay"})

	end := today.AddDate(0, 0, 10)
	changes, err := svc.Schedule(ScheduleInput{
		ClientID:   client.ID,
		StatusTo:   db.ClientStatusPaused,
		Reason:     " hospital ",
		ChangeDate: today.AddDate(0, 0, 3),
		EndDate:    &end,
	})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	start, back := changes[0], changes[1]
	assert.Equal(t, db.ClientStatusActive, start.StatusFrom)
	assert.Equal(t, db.ClientStatusPaused, start.StatusTo)
	assert.Equal(t, "hospital", start.Reason)
	require.NotNil(t, start.PairID)
	assert.Equal(t, back.ID, *start.PairID)
	require.NotNil(t, back.PairID)
	assert.Equal(t, start.ID, *back.PairID)
	assert.Equal(t, db.ClientStatusPaused, back.StatusFrom)
	assert.Equal(t, db.ClientStatusActive, back.StatusTo)
	assert.Equal(t, db.ScheduledStatusEnd, back.ChangeState)

	// 计划状态
	status, err := svc.StatusPlannedAt(client, today.AddDate(0, 0, 1), today)
	require.NoError(t, err)
	assert.Equal(t, db.ClientStatusActive, status)
	status, err = svc.StatusPlannedAt(client, today.AddDate(0, 0, 5), today)
	require.NoError(t, err)
	assert.Equal(t, db.ClientStatusPaused, status)
	status, err = svc.StatusPlannedAt(client, today.AddDate(0, 0, 10), today)
	require.NoError(t, err)
	assert.Equal(t, db.ClientStatusActive, status)

	ongoing, err := svc.OngoingClientsAt(today.AddDate(0, 0, 5), today)
	require.NoError(t, err)
	assert.Empty(t, ongoing)
	ongoing, err = svc.OngoingClientsAt(today.AddDate(0, 0, 1), today)
	require.NoError(t, err)
	require.Len(t, ongoing, 1)

	// 取消任一条都会删除整对
	require.NoError(t, svc.Cancel(back.ID))
	list, err := svc.List(client.ID, "")
	require.NoError(t, err)
	assert.Empty(t, list)
	require.ErrorIs(t, svc.Cancel(back.ID), ErrScheduledStatusNotFound)
}

func TestScheduleValidation(t *testing.T) {
	svc, today := newScheduledStatusService(t, "2024-03-04")
	client := createClient(t, svc.db, clientFixture{first: "Paul", last: "Gagnon"})

	_, err := svc.Schedule(ScheduleInput{ClientID: client.ID, StatusTo: db.ClientStatusPaused, ChangeDate: today.AddDate(0, 0, -1)})
	require.ErrorIs(t, err, ErrInvalidScheduledStatus)

	end := today
	_, err = svc.Schedule(ScheduleInput{ClientID: client.ID, StatusTo: db.ClientStatusPaused, ChangeDate: today, EndDate: &end})
	require.ErrorIs(t, err, ErrInvalidScheduledStatus)

	_, err = svc.Schedule(ScheduleInput{ClientID: client.ID, StatusTo: "X", ChangeDate: today})
	require.ErrorIs(t, err, ErrInvalidScheduledStatus)

	_, err = svc.Schedule(ScheduleInput{ClientID: client.ID, StatusTo: db.ClientStatusActive, ChangeDate: today})
	require.ErrorIs(t, err, ErrInvalidScheduledStatus)

	_, err = svc.Schedule(ScheduleInput{ClientID: 999, StatusTo: db.ClientStatusPaused, ChangeDate: today})
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestScheduleForTodayIsProcessedImmediately(t *testing.T) {
	svc, today := newScheduledStatusService(t, "2024-03-04")
	client := createClient(t, svc.db, clientFixture{first: "Lise", last: "Roy", status: db.ClientStatusPending})

	changes, err := svc.Schedule(ScheduleInput{ClientID: client.ID, StatusTo: db.ClientStatusActive, ChangeDate: today})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, db.OperationProcessed, changes[0].OperationStatus)
	assert.Equal(t, db.ClientStatusActive, reloadClient(t, client.ID).Status)

	notes, err := NewNoteService(svc.db).List(NoteFilter{ClientID: client.ID})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Note, "from Pending to Active")
}

func TestProcessDue(t *testing.T) {
	svc, today := newScheduledStatusService(t, "2024-03-04")
	ok := createClient(t, svc.db, clientFixture{first: "Anne", last: "Bergeron"})
	stale := createClient(t, svc.db, clientFixture{first: "Luc", last: "Cote"})

	tomorrow := today.AddDate(0, 0, 1)
	_, err := svc.Schedule(ScheduleInput{ClientID: ok.ID, StatusTo: db.ClientStatusPaused, ChangeDate: tomorrow})
	require.NoError(t, err)
	_, err = svc.Schedule(ScheduleInput{ClientID: stale.ID, StatusTo: db.ClientStatusStopContact, ChangeDate: tomorrow})
	require.NoError(t, err)
	_, err = svc.Schedule(ScheduleInput{ClientID: ok.ID, StatusTo: db.ClientStatusDeceased, ChangeDate: today.AddDate(0, 0, 7)})
	require.NoError(t, err)

	// 状态在计划之外被修改，变更不再有效
	require.NoError(t, svc.db.Model(&db.Client{}).Where("id = ?", stale.ID).Update("status", db.ClientStatusPaused).Error)

	result, err := svc.ProcessDue(today)
	require.NoError(t, err)
	assert.Empty(t, result.Processed)
	assert.Empty(t, result.Failed)

	result, err = svc.ProcessDue(tomorrow)
	require.NoError(t, err)
	require.Len(t, result.Processed, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, ok.ID, result.Processed[0].ClientID)
	assert.Equal(t, stale.ID, result.Failed[0].ClientID)
	assert.Equal(t, db.OperationError, result.Failed[0].OperationStatus)

	assert.Equal(t, db.ClientStatusPaused, reloadClient(t, ok.ID).Status)
	assert.Equal(t, db.ClientStatusPaused, reloadClient(t, stale.ID).Status)

	failed, err := svc.List(0, db.OperationError)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.True(t, NeedsAttention(failed[0], tomorrow))

	pending, err := svc.List(ok.ID, db.OperationToBeProcessed)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.False(t, NeedsAttention(pending[0], tomorrow))
	assert.True(t, NeedsAttention(pending[0], today.AddDate(0, 0, 7)))

	// 已处理的变更再次处理不会重复生效
	result, err = svc.ProcessDue(tomorrow)
	require.NoError(t, err)
	assert.Empty(t, result.Processed)
}
