package domain

import "github.com/google/uuid"

type ActionType string

const (
	ActionBoot                     ActionType = "BOOT"
	ActionTick                     ActionType = "TICK"
	ActionLoginSucceeded           ActionType = "LOGIN_SUCCEEDED"
	ActionLogout                   ActionType = "LOGOUT"
	ActionUseSavedLogin            ActionType = "USE_SAVED_LOGIN"
	ActionRememberedSessionsLoaded ActionType = "REMEMBERED_SESSIONS_LOADED"
	ActionForgetRememberedSession  ActionType = "FORGET_REMEMBERED_SESSION"
	ActionSwitchPage               ActionType = "SWITCH_PAGE"
	ActionUnlockTab                ActionType = "UNLOCK_TAB"
	ActionNavigate                 ActionType = "NAVIGATE"
	ActionSetDownloadsPaused       ActionType = "SET_DOWNLOADS_PAUSED"
	ActionQueueGameDownload        ActionType = "QUEUE_GAME_DOWNLOAD"
	ActionDownloadQueued           ActionType = "DOWNLOAD_QUEUED"
	ActionDownloadBlocked          ActionType = "DOWNLOAD_BLOCKED"
	ActionRequestCaveUninstall     ActionType = "REQUEST_CAVE_UNINSTALL"
	ActionQueueCaveUninstall       ActionType = "QUEUE_CAVE_UNINSTALL"
	ActionQueueCaveReinstall       ActionType = "QUEUE_CAVE_REINSTALL"
	ActionOpenModal                ActionType = "OPEN_MODAL"
	ActionCloseModal               ActionType = "CLOSE_MODAL"
	ActionNavigateTab              ActionType = "NAVIGATE_TAB"
	ActionTabReloaded              ActionType = "TAB_RELOADED"
	ActionTabDataFetched           ActionType = "TAB_DATA_FETCHED"
	ActionTabFetchFailed           ActionType = "TAB_FETCH_FAILED"
)

const (
	PageGate = "gate"
	PageHub  = "hub"

	URLDashboard = "itch://dashboard"
	URLDownloads = "itch://downloads"
)

// Payload is implemented by every action payload; the payload type decides
// the action type so the two can never disagree.
type Payload interface {
	ActionType() ActionType
}

// Action is immutable once dispatched.
type Action struct {
	ID      string     `json:"id"`
	Type    ActionType `json:"type"`
	Payload Payload    `json:"payload"`
}

func NewAction(p Payload) Action {
	return Action{
		ID:      uuid.NewString(),
		Type:    p.ActionType(),
		Payload: p,
	}
}

type Boot struct{}

// Tick is a no-op action used to flush reactors waiting on the next dispatch.
type Tick struct{}

type LoginSucceeded struct {
	Credentials Credentials `json:"credentials"`
}

type Logout struct{}

type UseSavedLogin struct {
	ProfileID int64 `json:"profile_id"`
}

type RememberedSessionsLoaded struct {
	Sessions map[int64]RememberedSession `json:"sessions"`
}

type ForgetRememberedSession struct {
	ProfileID int64 `json:"profile_id"`
}

type SwitchPage struct {
	Page string `json:"page"`
}

type UnlockTab struct {
	URL string `json:"url"`
}

type Navigate struct {
	URL        string `json:"url"`
	Background bool   `json:"background"`
}

type SetDownloadsPaused struct {
	Paused bool `json:"paused"`
}

type QueueGameDownload struct {
	GameID int64 `json:"game_id"`
}

type DownloadQueued struct {
	Download Download `json:"download"`
}

type DownloadBlocked struct {
	GameID int64  `json:"game_id"`
	Reason string `json:"reason"`
}

type RequestCaveUninstall struct {
	CaveID string `json:"cave_id"`
}

type QueueCaveUninstall struct {
	CaveID string `json:"cave_id"`
}

type QueueCaveReinstall struct {
	CaveID string `json:"cave_id"`
}

type OpenModal struct {
	Modal Modal `json:"modal"`
}

type CloseModal struct {
	ModalID string `json:"modal_id"`
}

type NavigateTab struct {
	TabID string `json:"tab_id"`
	Path  string `json:"path"`
}

type TabReloaded struct {
	TabID   string `json:"tab_id"`
	Attempt int    `json:"attempt"`
}

type TabDataFetched struct {
	TabID string  `json:"tab_id"`
	Data  TabData `json:"data"`
}

type TabFetchFailed struct {
	TabID  string `json:"tab_id"`
	Reason string `json:"reason"`
}

func (Boot) ActionType() ActionType                     { return ActionBoot }
func (Tick) ActionType() ActionType                     { return ActionTick }
func (LoginSucceeded) ActionType() ActionType           { return ActionLoginSucceeded }
func (Logout) ActionType() ActionType                   { return ActionLogout }
func (UseSavedLogin) ActionType() ActionType            { return ActionUseSavedLogin }
func (RememberedSessionsLoaded) ActionType() ActionType { return ActionRememberedSessionsLoaded }
func (ForgetRememberedSession) ActionType() ActionType  { return ActionForgetRememberedSession }
func (SwitchPage) ActionType() ActionType               { return ActionSwitchPage }
func (UnlockTab) ActionType() ActionType                { return ActionUnlockTab }
func (Navigate) ActionType() ActionType                 { return ActionNavigate }
func (SetDownloadsPaused) ActionType() ActionType       { return ActionSetDownloadsPaused }
func (QueueGameDownload) ActionType() ActionType        { return ActionQueueGameDownload }
func (DownloadQueued) ActionType() ActionType           { return ActionDownloadQueued }
func (DownloadBlocked) ActionType() ActionType          { return ActionDownloadBlocked }
func (RequestCaveUninstall) ActionType() ActionType     { return ActionRequestCaveUninstall }
func (QueueCaveUninstall) ActionType() ActionType       { return ActionQueueCaveUninstall }
func (QueueCaveReinstall) ActionType() ActionType       { return ActionQueueCaveReinstall }
func (OpenModal) ActionType() ActionType                { return ActionOpenModal }
func (CloseModal) ActionType() ActionType               { return ActionCloseModal }
func (NavigateTab) ActionType() ActionType              { return ActionNavigateTab }
func (TabReloaded) ActionType() ActionType              { return ActionTabReloaded }
func (TabDataFetched) ActionType() ActionType           { return ActionTabDataFetched }
func (TabFetchFailed) ActionType() ActionType           { return ActionTabFetchFailed }
