package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/boxtvstar/tube-radar-sub000/internal/model"
	"github.com/boxtvstar/tube-radar-sub000/internal/youtube"
	"github.com/boxtvstar/tube-radar-sub000/pkg/ids"
)

const (
	maxGroupNameLen    = 40
	maxChannelsPerOp   = 200
	maxChannelInputLen = 300
)

// LibraryService manages a user's tracked channels and their groups.
type LibraryService struct {
	groups   GroupStore
	channels ChannelStore
	yt       *YouTubeAccess
}

func NewLibraryService(groups GroupStore, channels ChannelStore, yt *YouTubeAccess) *LibraryService {
	return &LibraryService{groups: groups, channels: channels, yt: yt}
}

// Groups lists the user's groups with counts for the virtual buckets.
func (s *LibraryService) Groups(ctx context.Context, uid string) (*model.GroupsResponse, error) {
	groups, err := s.groups.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	total, unassigned, err := s.groups.Counts(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &model.GroupsResponse{Groups: groups, TotalChannels: total, UnassignedCount: unassigned}, nil
}

// CreateGroup adds a group at the end of the user's order.
func (s *LibraryService) CreateGroup(ctx context.Context, uid, name string) (*model.ChannelGroup, error) {
	name, err := validGroupName(name)
	if err != nil {
		return nil, err
	}
	g := &model.ChannelGroup{ID: newGroupID(), UserID: uid, Name: name}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, storeErr(err)
	}
	return g, nil
}

// RenameGroup changes a group's name.
func (s *LibraryService) RenameGroup(ctx context.Context, uid string, id model.GroupID, name string) error {
	if id.IsSentinel() {
		return invalid("virtual group %q cannot be renamed", id)
	}
	name, err := validGroupName(name)
	if err != nil {
		return err
	}
	return storeErr(s.groups.Rename(ctx, uid, id, name))
}

// ReorderGroups sets the display order of the user's groups.
func (s *LibraryService) ReorderGroups(ctx context.Context, uid string, order []model.GroupID) error {
	if len(order) == 0 {
		return invalid("group order is empty")
	}
	seen := make(map[model.GroupID]bool, len(order))
	for _, id := range order {
		if id.IsSentinel() || id == "" {
			return invalid("virtual group %q cannot be ordered", id)
		}
		if seen[id] {
			return invalid("group %q listed twice", id)
		}
		seen[id] = true
	}
	return storeErr(s.groups.Reorder(ctx, uid, order))
}

// DeleteGroup removes a group; its channels become unassigned.
func (s *LibraryService) DeleteGroup(ctx context.Context, uid string, id model.GroupID) error {
	if id.IsSentinel() {
		return invalid("virtual group %q cannot be deleted", id)
	}
	return storeErr(s.groups.Delete(ctx, uid, id))
}

// Channels lists the channels in group, which may be GroupAll or GroupUnassigned.
func (s *LibraryService) Channels(ctx context.Context, uid string, group model.GroupID) ([]model.SavedChannelResponse, error) {
	if group == "" {
		group = model.GroupAll
	}
	channels, err := s.channels.List(ctx, uid, group)
	if err != nil {
		return nil, err
	}
	out := make([]model.SavedChannelResponse, len(channels))
	for i := range channels {
		out[i] = model.SavedChannelResponse{SavedChannel: &channels[i], GroupID: channels[i].EffectiveGroup()}
	}
	return out, nil
}

// AddChannel resolves input (channel id, @handle or channel URL) and saves it.
func (s *LibraryService) AddChannel(ctx context.Context, u *model.User, req model.AddChannelRequest) (*model.SavedChannelResponse, error) {
	input := strings.TrimSpace(req.Input)
	if input == "" || utf8.RuneCountInString(input) > maxChannelInputLen {
		return nil, invalid("channel input must be 1-%d characters", maxChannelInputLen)
	}
	if _, err := youtube.ParseChannelRef(input); err != nil {
		return nil, upstreamErr(err)
	}
	target, err := s.resolveTarget(ctx, u.UID, req.GroupID)
	if err != nil {
		return nil, err
	}

	yt, err := s.yt.For(ctx, u)
	if err != nil {
		return nil, err
	}
	info, err := yt.ResolveChannel(ctx, input)
	if err != nil {
		return nil, yt.Err(ctx, err)
	}

	stats := info.Stats
	ch := &model.SavedChannel{
		UserID:            u.UID,
		ChannelID:         info.ChannelID,
		Title:             info.Title,
		CustomURL:         info.CustomURL,
		ThumbnailURL:      info.ThumbnailURL,
		UploadsPlaylistID: info.UploadsPlaylistID,
		GroupID:           target,
		Stats:             &stats,
	}
	if err := s.channels.Upsert(ctx, ch); err != nil {
		return nil, storeErr(err)
	}
	if err := s.channels.NotifyAdded(ctx, ch.ChannelID); err != nil {
		log.Warn().Err(err).Str("channel_id", ch.ChannelID).Msg("library: notify channel_added failed")
	}

	saved, err := s.channels.Get(ctx, u.UID, ch.ChannelID)
	if err != nil {
		saved = ch
	}
	return &model.SavedChannelResponse{SavedChannel: saved, GroupID: saved.EffectiveGroup()}, nil
}

// MoveChannels files channels under group. GroupUnassigned clears their group.
func (s *LibraryService) MoveChannels(ctx context.Context, uid string, req model.MoveChannelsRequest) (int, error) {
	channelIDs, err := validChannelIDs(req.ChannelIDs)
	if err != nil {
		return 0, err
	}
	if req.GroupID == model.GroupAll {
		return 0, invalid("channels cannot be moved to %q", model.GroupAll)
	}
	target, err := s.resolveTarget(ctx, uid, req.GroupID)
	if err != nil {
		return 0, err
	}
	n, err := s.channels.Move(ctx, uid, channelIDs, target)
	return n, storeErr(err)
}

// RemoveChannels untracks channels.
func (s *LibraryService) RemoveChannels(ctx context.Context, uid string, req model.RemoveChannelsRequest) (int, error) {
	channelIDs, err := validChannelIDs(req.ChannelIDs)
	if err != nil {
		return 0, err
	}
	n, err := s.channels.Remove(ctx, uid, channelIDs)
	return n, storeErr(err)
}

// CreateGroupWithChannels creates a group and moves saved channels into it atomically.
func (s *LibraryService) CreateGroupWithChannels(ctx context.Context, uid string, req model.BundleRequest) (*model.ChannelGroup, error) {
	name, err := validGroupName(req.Name)
	if err != nil {
		return nil, err
	}
	channelIDs, err := validChannelIDs(req.ChannelIDs)
	if err != nil {
		return nil, err
	}
	g := &model.ChannelGroup{ID: newGroupID(), UserID: uid, Name: name}
	if _, err := s.groups.CreateWithChannels(ctx, g, channelIDs); err != nil {
		return nil, storeErr(err)
	}
	return g, nil
}

// resolveTarget validates a destination group. Empty and sentinel ids mean
// no group.
func (s *LibraryService) resolveTarget(ctx context.Context, uid string, id model.GroupID) (*model.GroupID, error) {
	if id == "" || id.IsSentinel() {
		return nil, nil
	}
	ok, err := s.groups.Exists(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: group %s does not exist", ErrNotFound, id)
	}
	return &id, nil
}

func newGroupID() model.GroupID {
	return model.GroupID(ids.WithPrefix("grp"))
}

func validGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n == 0 || n > maxGroupNameLen {
		return "", invalid("group name must be 1-%d characters", maxGroupNameLen)
	}
	if model.GroupID(strings.ToLower(name)).IsSentinel() {
		return "", invalid("group name %q is reserved", name)
	}
	return name, nil
}

func validChannelIDs(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, invalid("no channels given")
	}
	if len(in) > maxChannelsPerOp {
		return nil, invalid("at most %d channels per request", maxChannelsPerOp)
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if !youtube.IsChannelID(id) {
			return nil, invalid("invalid channel id %q", id)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}
