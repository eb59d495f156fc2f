package domain

import "time"

type Video struct {
	AID       int64
	BVID      *string
	Title     string
	PubDate   time.Time
	Owner     Owner
	Pic       string
	Duration  int
	Desc      *string
	Category  *string
	Stat      *Stat
	Dimension *Dimension
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Owner identifies the account that published a video.
type Owner struct {
	MID  int64  `json:"mid"`
	Name string `json:"name"`
}

// Stat holds engagement counters, present only when the API returns the
// richer payload.
type Stat struct {
	View     int64 `json:"view"`
	Danmaku  int64 `json:"danmaku"`
	Reply    int64 `json:"reply"`
	Favorite int64 `json:"favorite"`
	Coin     int64 `json:"coin"`
	Share    int64 `json:"share"`
	Like     int64 `json:"like"`
}

type Dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Rotate int `json:"rotate"`
}

// Like is the durable fact that an account liked a video. CollectTime is set
// at first observation and never updated afterwards.
type Like struct {
	AccountID   int64     `db:"account_id"`
	AID         int64     `db:"aid"`
	CollectTime time.Time `db:"collect_time"`
}

// AccountInfo is the remote account profile.
type AccountInfo struct {
	MID  int64  `json:"mid"`
	Name string `json:"name"`
	Face string `json:"face"`
}
