package bilibili

// envelope is the common Bilibili API response wrapper.
type envelope struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Data    *payload `json:"data"`
}

type payload struct {
	List []VideoItem `json:"list"`
}

// VideoItem represents one liked video as returned by the space API. Owner,
// Stat and Dimension are optional; the API omits them on the slim payload.
type VideoItem struct {
	AID       int64     `json:"aid"`
	BVID      string    `json:"bvid"`
	Title     string    `json:"title"`
	PubDate   int64     `json:"pubdate"`
	Pic       string    `json:"pic"`
	Duration  int       `json:"duration"`
	Desc      string    `json:"desc"`
	TName     string    `json:"tname"`
	Owner     *APIOwner `json:"owner"`
	Stat      *APIStat  `json:"stat"`
	Dimension *APIDim   `json:"dimension"`
}

type APIOwner struct {
	MID  int64  `json:"mid"`
	Name string `json:"name"`
}

type APIStat struct {
	View     int64 `json:"view"`
	Danmaku  int64 `json:"danmaku"`
	Reply    int64 `json:"reply"`
	Favorite int64 `json:"favorite"`
	Coin     int64 `json:"coin"`
	Share    int64 `json:"share"`
	Like     int64 `json:"like"`
}

type APIDim struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Rotate int `json:"rotate"`
}

type accountEnvelope struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    *AccountData `json:"data"`
}

type AccountData struct {
	MID  int64  `json:"mid"`
	Name string `json:"name"`
	Face string `json:"face"`
}
