// Package roster holds the paginated candidate collection and is the only writer of
// Profile and Application records. Consumers read snapshots and issue commands.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/samtoma/Headhunter-sub000/internal/backend"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

// EventType names a roster change.
type EventType string

const (
	EventLoaded   EventType = "loaded"
	EventUpdated  EventType = "updated"
	EventReverted EventType = "reverted"
	EventRemoved  EventType = "removed"
	EventReset    EventType = "reset"
)

// Event is delivered to subscribers after the change is visible to readers.
type Event struct {
	Type       EventType `json:"type"`
	ProfileIDs []int64   `json:"profile_ids,omitempty"`
}

type subscriber struct {
	id int
	fn func(Event)
}

// Store is the roster. It is safe for concurrent use.
//
// Mutations are optimistic: the patch is applied locally, subscribers are notified,
// then the backend is called. Mutations of the same entity run one at a time in
// arrival order. Page loads, reloads and refreshes are serialized with each other.
type Store struct {
	client   backend.Client
	pageSize int
	locks    *keyedMutex

	pageMu sync.Mutex

	mu       sync.RWMutex
	query    models.ProfileQuery
	profiles []models.Profile
	index    map[int64]int
	cursor   int
	hasMore  bool
	gen      uint64
	stamps   map[entityKey]uint64
	inflight map[entityKey]int

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int
}

// New returns an empty roster using the default query.
func New(client backend.Client, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Store{
		client:   client,
		pageSize: pageSize,
		locks:    newKeyedMutex(),
		query:    models.ProfileQuery{}.Normalize(),
		index:    make(map[int64]int),
		hasMore:  true,
		stamps:   make(map[entityKey]uint64),
		inflight: make(map[entityKey]int),
	}
}

// --- reads ---

func (s *Store) Query() models.ProfileQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Profiles returns a copy of the roster in display order.
func (s *Store) Profiles() []models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Profile, len(s.profiles))
	for i, p := range s.profiles {
		out[i] = p.Clone()
	}
	return out
}

func (s *Store) Profile(id int64) (models.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Profile{}, false
	}
	return s.profiles[i].Clone(), true
}

// ApplicationFor returns the application linking profileID to jobID.
func (s *Store) ApplicationFor(profileID, jobID int64) (models.Application, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[profileID]
	if !ok {
		return models.Application{}, false
	}
	app := s.profiles[i].ApplicationFor(jobID)
	if app == nil {
		return models.Application{}, false
	}
	return app.Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// IDs returns the profile identifiers in display order.
func (s *Store) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, len(s.profiles))
	for i, p := range s.profiles {
		ids[i] = p.ID
	}
	return ids
}

// HasMore reports whether another page may exist.
func (s *Store) HasMore() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasMore
}

func (s *Store) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// --- subscriptions ---

// Subscribe registers fn for every future event. fn runs on the goroutine that made
// the change and must not block. The returned func cancels the subscription.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	subs := slices.Clone(s.subs)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(ev)
	}
}

// --- paging ---

// SetQuery validates q, empties the roster and loads the first page for it.
// Subscribers see a single reset once the new page is in place, or an empty reset if
// the load fails.
func (s *Store) SetQuery(ctx context.Context, q models.ProfileQuery) error {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return err
	}

	s.pageMu.Lock()
	defer s.pageMu.Unlock()

	s.mu.Lock()
	s.query = q
	s.profiles = nil
	s.index = make(map[int64]int)
	s.cursor = 0
	s.hasMore = true
	s.mu.Unlock()

	if _, err := s.loadPageLocked(ctx, EventReset); err != nil {
		s.notify(Event{Type: EventReset})
		return err
	}
	return nil
}

// LoadPage fetches the page at the current cursor and appends profiles not already
// present. It returns how many profiles were added. A short page clears HasMore,
// after which LoadPage is a no-op.
func (s *Store) LoadPage(ctx context.Context) (int, error) {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()
	return s.loadPageLocked(ctx, EventLoaded)
}

func (s *Store) loadPageLocked(ctx context.Context, evType EventType) (int, error) {
	s.mu.RLock()
	if !s.hasMore {
		s.mu.RUnlock()
		return 0, nil
	}
	req := models.PageRequest{Query: s.query, Cursor: s.cursor, Limit: s.pageSize}
	since := s.gen
	s.mu.RUnlock()

	page, err := s.client.ListProfiles(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("load page at cursor %d: %w", req.Cursor, err)
	}

	s.mu.Lock()
	ids := make([]int64, 0, len(page))
	added := 0
	for _, p := range page {
		ids = append(ids, p.ID)
		if i, ok := s.index[p.ID]; ok {
			s.profiles[i] = s.mergeLocked(s.profiles[i], p, since)
			continue
		}
		if s.protectedLocked(profileKey(p.ID), since) {
			continue
		}
		s.profiles = append(s.profiles, p.Clone())
		s.index[p.ID] = len(s.profiles) - 1
		added++
	}
	s.cursor += len(page)
	s.hasMore = len(page) >= s.pageSize
	s.settleLocked()
	s.mu.Unlock()

	s.notify(Event{Type: evType, ProfileIDs: ids})
	return added, nil
}

// Reload fetches the first page for the current query and replaces the roster with
// it. On failure the roster is left as it was.
func (s *Store) Reload(ctx context.Context) error {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()

	s.mu.RLock()
	req := models.PageRequest{Query: s.query, Limit: s.pageSize}
	since := s.gen
	s.mu.RUnlock()

	page, err := s.client.ListProfiles(ctx, req)
	if err != nil {
		return fmt.Errorf("reload roster: %w", err)
	}

	s.mu.Lock()
	next := make([]models.Profile, 0, len(page))
	seen := make(map[int64]bool, len(page))
	for _, p := range page {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if i, ok := s.index[p.ID]; ok {
			next = append(next, s.mergeLocked(s.profiles[i], p, since))
			continue
		}
		if s.protectedLocked(profileKey(p.ID), since) {
			continue
		}
		next = append(next, p.Clone())
	}
	s.profiles = next
	s.cursor = len(page)
	s.hasMore = len(page) >= s.pageSize
	s.settleLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventReset})
	return nil
}

// Refresh re-fetches the first page and merges it into the loaded roster without
// dropping later pages. Profiles the roster has not seen are inserted. Before
// anything is loaded it behaves like LoadPage.
func (s *Store) Refresh(ctx context.Context) error {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()

	s.mu.RLock()
	loaded := s.cursor > 0
	req := models.PageRequest{Query: s.query, Limit: s.pageSize}
	since := s.gen
	s.mu.RUnlock()

	if !loaded {
		_, err := s.loadPageLocked(ctx, EventLoaded)
		return err
	}

	page, err := s.client.ListProfiles(ctx, req)
	if err != nil {
		return fmt.Errorf("refresh roster: %w", err)
	}

	s.mu.Lock()
	ids := make([]int64, 0, len(page))
	for _, p := range page {
		ids = append(ids, p.ID)
		if i, ok := s.index[p.ID]; ok {
			s.profiles[i] = s.mergeLocked(s.profiles[i], p, since)
			continue
		}
		if s.protectedLocked(profileKey(p.ID), since) {
			continue
		}
		s.profiles = append(s.profiles, p.Clone())
		s.index[p.ID] = len(s.profiles) - 1
		// new arrivals shift the server-side offset of everything after them
		s.cursor++
	}
	s.settleLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventLoaded, ProfileIDs: ids})
	return nil
}

// mergeLocked combines a fetched profile with the local copy. Local state wins for
// any entity with a mutation in flight or one committed after the fetch was issued
// at generation since.
func (s *Store) mergeLocked(local, fetched models.Profile, since uint64) models.Profile {
	out := fetched.Clone()
	if s.protectedLocked(profileKey(local.ID), since) {
		apps := out.Applications
		out = local.Clone()
		out.Applications = apps
	}

	merged := make([]models.Application, 0, len(out.Applications))
	for _, app := range out.Applications {
		if !s.protectedLocked(applicationKey(app.ID), since) {
			merged = append(merged, app)
			continue
		}
		// absent locally means it was removed after the fetch was issued
		if j := indexOfApplication(local.Applications, app.ID); j >= 0 {
			merged = append(merged, local.Applications[j].Clone())
		}
	}
	for _, app := range local.Applications {
		if s.protectedLocked(applicationKey(app.ID), since) && indexOfApplication(merged, app.ID) < 0 {
			merged = append(merged, app.Clone())
		}
	}
	out.Applications = merged
	return out
}

func (s *Store) protectedLocked(key entityKey, since uint64) bool {
	return s.inflight[key] > 0 || s.stamps[key] > since
}

// settleLocked restores display order after a merge. Page requests are serialized,
// so once one has been merged every stamp is older than any later request.
func (s *Store) settleLocked() {
	s.sortLocked()
	clear(s.stamps)
}

func (s *Store) sortLocked() {
	slices.SortStableFunc(s.profiles, comparator(s.query))
	s.index = make(map[int64]int, len(s.profiles))
	for i, p := range s.profiles {
		s.index[p.ID] = i
	}
}

// releaseLocked ends one in-flight change of key.
func (s *Store) releaseLocked(key entityKey) {
	if s.inflight[key] <= 1 {
		delete(s.inflight, key)
		return
	}
	s.inflight[key]--
}

// stampLocked records a committed local change.
func (s *Store) stampLocked(keys ...entityKey) {
	s.gen++
	for _, k := range keys {
		s.stamps[k] = s.gen
	}
}

func (s *Store) locateApplicationLocked(id int64) (pi, ai int, ok bool) {
	for pi := range s.profiles {
		if ai := indexOfApplication(s.profiles[pi].Applications, id); ai >= 0 {
			return pi, ai, true
		}
	}
	return 0, 0, false
}

func indexOfApplication(apps []models.Application, id int64) int {
	return slices.IndexFunc(apps, func(a models.Application) bool { return a.ID == id })
}

// --- mutations ---

// MutateApplication applies patch to the application optimistically and persists it.
// It waits for any earlier mutation of the same application to resolve first. On
// failure the application is restored and a *MutationError is returned. On success
// the backend's record replaces the local one.
func (s *Store) MutateApplication(ctx context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	key := applicationKey(id)
	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", key, err)
	}
	defer unlock()

	s.mu.Lock()
	pi, ai, ok := s.locateApplicationLocked(id)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("application %d: %w", id, ErrNotFound)
	}
	profileID := s.profiles[pi].ID
	snapshot := s.profiles[pi].Applications[ai].Clone()
	patch.Apply(&s.profiles[pi].Applications[ai])
	s.inflight[key]++
	s.mu.Unlock()
	s.notify(Event{Type: EventUpdated, ProfileIDs: []int64{profileID}})

	// Once issued, the request runs to completion even if the caller goes away.
	saved, err := s.client.PatchApplication(context.WithoutCancel(ctx), id, patch)

	s.mu.Lock()
	s.releaseLocked(key)
	pi, ai, ok = s.locateApplicationLocked(id)
	if err != nil {
		if ok {
			s.profiles[pi].Applications[ai] = snapshot
		}
		s.mu.Unlock()
		slog.Warn("application mutation rolled back", "application_id", id, "error", err)
		s.notify(Event{Type: EventReverted, ProfileIDs: []int64{profileID}})
		return nil, &MutationError{Entity: string(kindApplication), ID: id, Err: err}
	}

	s.stampLocked(key)
	var out models.Application
	switch {
	case ok && saved != nil:
		current := s.profiles[pi].Applications[ai]
		next := saved.Clone()
		if next.ProfileID == 0 {
			next.ProfileID = current.ProfileID
		}
		if next.MatchScore == nil {
			next.MatchScore = current.Clone().MatchScore
		}
		s.profiles[pi].Applications[ai] = next
		out = next.Clone()
	case ok:
		out = s.profiles[pi].Applications[ai].Clone()
	case saved != nil:
		out = saved.Clone()
	default:
		out = snapshot
		patch.Apply(&out)
	}
	s.mu.Unlock()

	s.notify(Event{Type: EventUpdated, ProfileIDs: []int64{profileID}})
	return &out, nil
}

// MutateProfile is the optimistic commit-or-revert contract for profile fields.
// Applications and the reprocessing marker are never touched by its rollback.
func (s *Store) MutateProfile(ctx context.Context, id int64, patch models.ProfilePatch) (*models.Profile, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	key := profileKey(id)
	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", key, err)
	}
	defer unlock()

	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("profile %d: %w", id, ErrNotFound)
	}
	snapshot := s.profiles[i].Clone()
	patch.Apply(&s.profiles[i])
	s.inflight[key]++
	s.sortLocked()
	s.mu.Unlock()
	s.notify(Event{Type: EventUpdated, ProfileIDs: []int64{id}})

	saved, err := s.client.PatchProfile(context.WithoutCancel(ctx), id, patch)

	s.mu.Lock()
	s.releaseLocked(key)
	i, ok = s.index[id]
	if err != nil {
		if ok {
			restored := snapshot
			restored.Applications = s.profiles[i].Applications
			restored.IsReprocessing = s.profiles[i].IsReprocessing
			s.profiles[i] = restored
			s.sortLocked()
		}
		s.mu.Unlock()
		slog.Warn("profile mutation rolled back", "profile_id", id, "error", err)
		s.notify(Event{Type: EventReverted, ProfileIDs: []int64{id}})
		return nil, &MutationError{Entity: string(kindProfile), ID: id, Err: err}
	}

	s.stampLocked(key)
	var out models.Profile
	switch {
	case ok && saved != nil:
		next := saved.Clone()
		next.Applications = s.profiles[i].Applications
		s.profiles[i] = next
		s.sortLocked()
		out = s.profiles[s.index[id]].Clone()
	case ok:
		out = s.profiles[i].Clone()
	case saved != nil:
		out = saved.Clone()
	default:
		out = snapshot
		patch.Apply(&out)
	}
	s.mu.Unlock()

	s.notify(Event{Type: EventUpdated, ProfileIDs: []int64{id}})
	return &out, nil
}

// MarkReprocessing flags the loaded profiles among ids as pending reprocess. The
// marked profiles stay protected from page merges until commit or restore is called.
// restore puts each flag back to its previous value. Only the first call of either
// has any effect.
func (s *Store) MarkReprocessing(ids []int64) (commit, restore func()) {
	s.mu.Lock()
	prev := make(map[int64]bool, len(ids))
	keys := make([]entityKey, 0, len(ids))
	touched := make([]int64, 0, len(ids))
	for _, id := range ids {
		i, ok := s.index[id]
		if !ok {
			continue
		}
		if _, dup := prev[id]; dup {
			continue
		}
		prev[id] = s.profiles[i].IsReprocessing
		s.profiles[i].IsReprocessing = true
		key := profileKey(id)
		s.inflight[key]++
		keys = append(keys, key)
		touched = append(touched, id)
	}
	s.stampLocked(keys...)
	s.mu.Unlock()
	s.notify(Event{Type: EventUpdated, ProfileIDs: touched})

	var once sync.Once
	resolve := func(revert bool) {
		once.Do(func() {
			s.mu.Lock()
			for _, k := range keys {
				s.releaseLocked(k)
			}
			if revert {
				for id, was := range prev {
					if i, ok := s.index[id]; ok {
						s.profiles[i].IsReprocessing = was
					}
				}
			}
			s.stampLocked(keys...)
			s.mu.Unlock()
			if revert {
				s.notify(Event{Type: EventReverted, ProfileIDs: touched})
			}
		})
	}
	return func() { resolve(false) }, func() { resolve(true) }
}

// AttachApplications inserts applications the backend has created. An existing
// application with the same ID, or for the same job, is replaced. Applications for
// profiles that are not loaded are ignored. It returns the touched profile IDs.
func (s *Store) AttachApplications(apps []models.Application) []int64 {
	s.mu.Lock()
	touched := make([]int64, 0, len(apps))
	keys := make([]entityKey, 0, len(apps))
	for _, app := range apps {
		i, ok := s.index[app.ProfileID]
		if !ok {
			continue
		}
		p := &s.profiles[i]
		j := slices.IndexFunc(p.Applications, func(a models.Application) bool {
			return a.ID == app.ID || a.JobID == app.JobID
		})
		if j >= 0 {
			p.Applications[j] = app.Clone()
		} else {
			p.Applications = append(p.Applications, app.Clone())
		}
		keys = append(keys, applicationKey(app.ID))
		if !slices.Contains(touched, app.ProfileID) {
			touched = append(touched, app.ProfileID)
		}
	}
	s.stampLocked(keys...)
	s.mu.Unlock()

	if len(touched) > 0 {
		s.notify(Event{Type: EventUpdated, ProfileIDs: touched})
	}
	return touched
}

// RemoveProfiles drops profiles the backend has deleted. The cursor moves back by
// the number removed so the next page does not skip anything. Every id is stamped,
// loaded or not, so a page already in flight cannot bring one back.
func (s *Store) RemoveProfiles(ids []int64) []int64 {
	s.mu.Lock()
	drop := make(map[int64]bool, len(ids))
	keys := make([]entityKey, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, profileKey(id))
		if _, ok := s.index[id]; ok {
			drop[id] = true
		}
	}
	s.stampLocked(keys...)
	if len(drop) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.profiles = slices.DeleteFunc(s.profiles, func(p models.Profile) bool { return drop[p.ID] })
	s.cursor = max(0, s.cursor-len(drop))
	s.sortLocked()
	s.mu.Unlock()

	removed := make([]int64, 0, len(drop))
	for _, id := range ids {
		if drop[id] {
			removed = append(removed, id)
			delete(drop, id)
		}
	}
	s.notify(Event{Type: EventRemoved, ProfileIDs: removed})
	return removed
}

// DeleteProfile deletes one profile on the backend and, on success, drops it locally.
func (s *Store) DeleteProfile(ctx context.Context, id int64) error {
	unlock, err := s.locks.Lock(ctx, profileKey(id))
	if err != nil {
		return fmt.Errorf("wait for profile %d: %w", id, err)
	}
	defer unlock()

	if err := s.client.DeleteProfile(context.WithoutCancel(ctx), id); err != nil {
		return fmt.Errorf("delete profile %d: %w", id, err)
	}
	s.RemoveProfiles([]int64{id})
	return nil
}

// RemoveApplication takes a profile out of one job pipeline. The local application
// is dropped only after the backend confirms.
func (s *Store) RemoveApplication(ctx context.Context, id int64) error {
	key := applicationKey(id)
	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", key, err)
	}
	defer unlock()

	if err := s.client.DeleteApplication(context.WithoutCancel(ctx), id); err != nil {
		return fmt.Errorf("remove application %d: %w", id, err)
	}

	s.mu.Lock()
	pi, ai, ok := s.locateApplicationLocked(id)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	profileID := s.profiles[pi].ID
	s.profiles[pi].Applications = slices.Delete(s.profiles[pi].Applications, ai, ai+1)
	s.stampLocked(key)
	s.mu.Unlock()

	s.notify(Event{Type: EventUpdated, ProfileIDs: []int64{profileID}})
	return nil
}
