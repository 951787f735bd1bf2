// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielhkuo/tokumei-poll/models"
	"github.com/danielhkuo/tokumei-poll/store"
)

// PollStore is the subset of store.Store the handlers use
type PollStore interface {
	CreatePoll(ctx context.Context, p models.NewPoll) (int64, error)
	AttachMessage(ctx context.Context, pollID int64, messageID uint64) error
	GetActivePollSummary(ctx context.Context, pollID int64) (models.Poll, error)
	CastVote(ctx context.Context, pollID int64, voterID uint64, choice int) (models.VoteResult, error)
	EndPoll(ctx context.Context, pollID int64) (models.FinalResult, models.EndOutcome, error)
	SweepExpired(ctx context.Context, now time.Time) ([]models.Poll, error)
	PurgeRetired(ctx context.Context, before time.Time) (int64, error)
	ListActiveByCreator(ctx context.Context, creatorID uint64, limit int) ([]models.Poll, error)
	ListActive(ctx context.Context) ([]models.Poll, error)
	Deactivate(ctx context.Context, pollID int64) error
}

// Messenger posts and edits poll messages in a channel
type Messenger interface {
	PostPoll(ctx context.Context, channelID uint64, msg models.PollMessage) (uint64, error)
	UpdatePoll(ctx context.Context, channelID, messageID uint64, msg models.PollMessage) error
	DeleteMessage(ctx context.Context, channelID, messageID uint64) error
	PostResults(ctx context.Context, channelID uint64, msg models.ResultMessage) error
}

// User-facing copy
const (
	msgVoteAccepted   = "投票を受け付けたよ（現在の投票数: %d票）"
	msgVoteDuplicate  = "既に投票済みだよ"
	msgPollEnded      = "この投票はもう終了しているよ"
	msgInvalidChoice  = "その選択肢は存在しないよ"
	msgVoteError      = "投票の処理中にエラーが発生したよ。もう一度試してね"
	msgVoteTooFast    = "投票が早すぎます。%d秒後に試してね"
	msgCommandTooFast = "コマンドの実行が早すぎます。%d秒後に試してね"

	msgTitleOptionsRequired = "タイトルと選択肢は必須だよ"
	msgTooFewOptions        = "選択肢は2つ以上必要だよ"
	msgTooManyOptions       = "選択肢は最大%d個までだよ"
	msgInvalidDuration      = "投票期間の指定が正しくないよ"
	msgInvalidInput         = "入力内容が正しくないよ（%s）"
	msgCreateError          = "投票の作成中にエラーが発生したよ"
	msgCreated              = "投票を作成したよ（ID: %d）"
	msgUnknownAction        = "actionには create か end を指定してね"

	msgNoEndable     = "終了可能な投票が見つからないよ"
	msgChooseEnd     = "終了する投票を選択してね: "
	msgPollNotFound  = "投票が見つかりませんでした"
	msgNotCreator    = "この投票を終了できるのは作成者だけだよ"
	msgInvalidPollID = "投票IDが正しくないよ"
	msgEnded         = "投票を終了して削除したよ"
	msgEndError      = "投票の終了処理中にエラーが発生したよ"
	msgSystemError   = "システムエラーが発生したよ"
)

// Message copy posted to channels
const (
	pollTitlePrefix     = "📊 "
	pollAnonymousHeader = "🔒 **匿名投票**\n\n"
	pollDefaultBody     = "投票を開始するよ"
	recoveredNote       = "(BOTの再起動により再作成されました)"
	resultTitlePrefix   = "📊 投票結果: "
	resultExpiredSuffix = " (自動終了)"
	resultDescription   = "🔒 この投票は匿名で実施されたよ"
	resultFooter        = "総投票数: %d票"
	resultExpiredNotice = "投票の終了時間になったよ"
)

// SystemErrorMessage is the reply for interactions that failed unexpectedly
const SystemErrorMessage = msgSystemError

// Discord length limits
const (
	MaxEmbedTitle  = 256
	maxButtonLabel = 80
)

// MaxEndChoices is the number of polls offered in the end selection list
const MaxEndChoices = 25

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
