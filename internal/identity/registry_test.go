package identity

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/policy"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateRefusesOverBasicQuota(t *testing.T) {
	now := time.Now()
	r := NewRegistry(fixedClock(now))
	for i := 0; i < 3; i++ {
		res := r.Create(policy.Basic, nil)
		require.Falsef(t, res.Refused, "identity %d refused unexpectedly: %v", i, res.Reason)
	}
	res := r.Create(policy.Basic, nil)
	require.True(t, res.Refused)
	require.Equal(t, policy.ReasonQuotaExceeded, res.Reason)
}

func TestCreatePlusUnlimited(t *testing.T) {
	r := NewRegistry(fixedClock(time.Now()))
	for i := 0; i < 10; i++ {
		res := r.Create(policy.Plus, nil)
		require.Falsef(t, res.Refused, "Plus identity %d refused: %v", i, res.Reason)
	}
}

func TestRenameUniqueCaseFold(t *testing.T) {
	r := NewRegistry(fixedClock(time.Now()))
	a := r.Create(policy.Pro, nil).Identity
	b := r.Create(policy.Pro, nil).Identity

	res := r.Rename(a.ID, "Work")
	require.False(t, res.Refused)

	res = r.Rename(b.ID, "WORK")
	require.True(t, res.Refused)
	require.Equal(t, policy.ReasonNameDuplicate, res.Reason)
}

func TestRenameEmptyClearsName(t *testing.T) {
	r := NewRegistry(fixedClock(time.Now()))
	a := r.Create(policy.Pro, nil).Identity
	r.Rename(a.ID, "Personal")
	res := r.Rename(a.ID, "")
	require.False(t, res.Refused)
	require.Empty(t, a.Name)

	// the cleared name must be reusable by another identity
	b := r.Create(policy.Pro, nil).Identity
	res = r.Rename(b.ID, "Personal")
	require.False(t, res.Refused)
}

func TestRenameBoundaryLength(t *testing.T) {
	r := NewRegistry(fixedClock(time.Now()))
	a := r.Create(policy.Pro, nil).Identity
	fifty := make([]rune, 50)
	for i := range fifty {
		fifty[i] = 'a'
	}
	res := r.Rename(a.ID, string(fifty))
	require.False(t, res.Refused)

	b := r.Create(policy.Pro, nil).Identity
	fiftyOne := append(fifty, 'a')
	res = r.Rename(b.ID, string(fiftyOne))
	require.True(t, res.Refused)
	require.Equal(t, policy.ReasonNameTooLong, res.Reason)
}

func TestRenameSanitizesDangerousCharacters(t *testing.T) {
	r := NewRegistry(fixedClock(time.Now()))
	a := r.Create(policy.Pro, nil).Identity
	r.Rename(a.ID, `<script>"bad'`+"`"+`  name  </script>`)
	require.Equal(t, "scriptbad name /script", a.Name)
}

func TestBindUnbindTabTogglesDormant(t *testing.T) {
	r := NewRegistry(fixedClock(time.Now()))
	a := r.Create(policy.Basic, nil).Identity
	require.True(t, a.Dormant())

	r.BindTab(a.ID, "tab-1")
	require.True(t, a.Active())

	becameDormant := r.UnbindTab(a.ID, "tab-1")
	require.True(t, becameDormant)
	require.True(t, a.Dormant())
}

func TestDeleteAllDormantIdempotent(t *testing.T) {
	r := NewRegistry(fixedClock(time.Now()))
	r.Create(policy.Basic, nil)
	r.Create(policy.Basic, nil)

	attempted, deleted, _ := r.DeleteAllDormant()
	require.Equal(t, 2, attempted)
	require.Equal(t, 2, deleted)

	attempted, deleted, _ = r.DeleteAllDormant()
	require.Equal(t, 0, attempted)
	require.Equal(t, 0, deleted)
}

func TestExpireDormantRespectsTier(t *testing.T) {
	now := time.Now()
	r := NewRegistry(fixedClock(now))
	basic := r.Create(policy.Basic, nil).Identity
	pro := r.Create(policy.Pro, nil).Identity

	// simulate both going dormant 8 days ago
	r.mu.Lock()
	basic.LastAccessedAt = now.Add(-8 * 24 * time.Hour)
	pro.LastAccessedAt = now.Add(-8 * 24 * time.Hour)
	r.mu.Unlock()

	expired := r.ExpireDormant(now)
	require.Equal(t, []ID{basic.ID}, expired)

	_, ok := r.Get(pro.ID)
	require.True(t, ok)
}

func TestEnumerateSortedByCreationOrder(t *testing.T) {
	r := NewRegistry(fixedClock(time.Now()))
	first := r.Create(policy.Pro, nil).Identity
	second := r.Create(policy.Pro, nil).Identity
	r.BindTab(first.ID, "t1")
	r.BindTab(second.ID, "t2")

	e := r.Enumerate()
	require.Len(t, e.Active, 2)
	require.Equal(t, first.ID, e.Active[0].ID)
	require.Equal(t, second.ID, e.Active[1].ID)
}

func TestFindByPersistedURL(t *testing.T) {
	r := NewRegistry(fixedClock(time.Now()))
	a := r.Create(policy.Pro, nil).Identity
	r.RecordNavigation(a.ID, "https://a.test/x?q=1", "a.test", "/x", "Title")

	id, ok := r.FindByPersistedURL("a.test", "/x")
	require.True(t, ok)
	require.Equal(t, a.ID, id)
}

func TestRecordNavigationCapsAt50(t *testing.T) {
	r := NewRegistry(fixedClock(time.Now()))
	a := r.Create(policy.Pro, nil).Identity
	for i := 0; i < 60; i++ {
		path := "/p" + strconv.Itoa(i)
		r.RecordNavigation(a.ID, "https://a.test"+path, "a.test", path, "t")
	}
	require.Len(t, a.PersistedTabs(), maxPersistedTabs)
}
