package state

import (
	"maps"
	"slices"
	"time"

	"storefront/internal/domain"
)

// AppState is treated as immutable: Reduce copies whatever it changes, so a
// snapshot returned by Store.State stays consistent while reactors run.
type AppState struct {
	Session            SessionState
	RememberedSessions map[int64]domain.RememberedSession
	UI                 UIState
	Tabs               map[string]domain.TabData
	TabErrors          map[string]string
	Downloads          DownloadsState
	Modals             []domain.Modal
	Ticks              int
}

type SessionState struct {
	Credentials *domain.Credentials
}

type UIState struct {
	Page         string
	UnlockedTabs []string
	// URLs opened with Navigate, most recent last.
	Opened     []string
	CurrentURL string
}

type DownloadsState struct {
	Paused  bool
	Queue   []domain.Download
	Blocked map[int64]string
}

func Initial() AppState {
	return AppState{
		RememberedSessions: map[int64]domain.RememberedSession{},
		UI:                 UIState{Page: domain.PageGate},
		Tabs:               map[string]domain.TabData{},
		TabErrors:          map[string]string{},
		Downloads: DownloadsState{
			Paused:  true,
			Blocked: map[int64]string{},
		},
	}
}

// Identity is the part of the state credential resolution reads.
type Identity struct {
	Credentials        *domain.Credentials
	RememberedSessions map[int64]domain.RememberedSession
}

func (s AppState) Identity() Identity {
	return Identity{
		Credentials:        s.Session.Credentials,
		RememberedSessions: s.RememberedSessions,
	}
}

// ActiveDownload returns the first queued download, if any.
func (s AppState) ActiveDownload() (domain.Download, bool) {
	if len(s.Downloads.Queue) == 0 {
		return domain.Download{}, false
	}
	return s.Downloads.Queue[0], true
}

func Reduce(s AppState, action domain.Action) AppState {
	switch p := action.Payload.(type) {
	case domain.Tick:
		s.Ticks++

	case domain.LoginSucceeded:
		creds := p.Credentials
		s.Session.Credentials = &creds
		s.RememberedSessions = maps.Clone(s.RememberedSessions)
		if s.RememberedSessions == nil {
			s.RememberedSessions = map[int64]domain.RememberedSession{}
		}
		s.RememberedSessions[creds.Me.ID] = domain.RememberedSession{
			Key:           creds.Key,
			Me:            creds.Me,
			LastConnected: time.Now().UTC(),
		}

	case domain.Logout:
		s.Session.Credentials = nil

	case domain.RememberedSessionsLoaded:
		merged := maps.Clone(p.Sessions)
		if merged == nil {
			merged = map[int64]domain.RememberedSession{}
		}
		// sessions established in this run are fresher than stored ones
		for id, rs := range s.RememberedSessions {
			merged[id] = rs
		}
		s.RememberedSessions = merged

	case domain.ForgetRememberedSession:
		if _, ok := s.RememberedSessions[p.ProfileID]; ok {
			s.RememberedSessions = maps.Clone(s.RememberedSessions)
			delete(s.RememberedSessions, p.ProfileID)
		}

	case domain.SwitchPage:
		s.UI.Page = p.Page

	case domain.UnlockTab:
		if !slices.Contains(s.UI.UnlockedTabs, p.URL) {
			s.UI.UnlockedTabs = append(slices.Clone(s.UI.UnlockedTabs), p.URL)
		}

	case domain.Navigate:
		s.UI.Opened = append(slices.Clone(s.UI.Opened), p.URL)
		if !p.Background {
			s.UI.CurrentURL = p.URL
		}

	case domain.SetDownloadsPaused:
		s.Downloads.Paused = p.Paused

	case domain.DownloadQueued:
		s.Downloads.Queue = append(slices.Clone(s.Downloads.Queue), p.Download)
		if _, ok := s.Downloads.Blocked[p.Download.GameID]; ok {
			s.Downloads.Blocked = maps.Clone(s.Downloads.Blocked)
			delete(s.Downloads.Blocked, p.Download.GameID)
		}

	case domain.DownloadBlocked:
		s.Downloads.Blocked = maps.Clone(s.Downloads.Blocked)
		if s.Downloads.Blocked == nil {
			s.Downloads.Blocked = map[int64]string{}
		}
		s.Downloads.Blocked[p.GameID] = p.Reason

	case domain.OpenModal:
		s.Modals = append(slices.Clone(s.Modals), p.Modal)

	case domain.CloseModal:
		s.Modals = slices.DeleteFunc(slices.Clone(s.Modals), func(m domain.Modal) bool {
			return m.ID == p.ModalID
		})

	case domain.NavigateTab:
		s.Tabs = maps.Clone(s.Tabs)
		if s.Tabs == nil {
			s.Tabs = map[string]domain.TabData{}
		}
		s.Tabs[p.TabID] = domain.TabData{Path: p.Path}
		s.TabErrors = withoutKey(s.TabErrors, p.TabID)

	case domain.TabDataFetched:
		s.Tabs = maps.Clone(s.Tabs)
		if s.Tabs == nil {
			s.Tabs = map[string]domain.TabData{}
		}
		data := p.Data
		if data.Path == "" {
			data.Path = s.Tabs[p.TabID].Path
		}
		s.Tabs[p.TabID] = data
		s.TabErrors = withoutKey(s.TabErrors, p.TabID)

	case domain.TabFetchFailed:
		s.TabErrors = maps.Clone(s.TabErrors)
		if s.TabErrors == nil {
			s.TabErrors = map[string]string{}
		}
		s.TabErrors[p.TabID] = p.Reason
	}
	return s
}

func withoutKey(m map[string]string, key string) map[string]string {
	if _, ok := m[key]; !ok {
		return m
	}
	out := maps.Clone(m)
	delete(out, key)
	return out
}
