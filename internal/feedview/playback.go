package feedview

// Playback は動画再生の所有権を管理する。
// 再生中のペーパーIDは常に高々1つで、タップによるトグルと
// スライド切り替え時のクリアの両方をここで一元化する。
type Playback struct {
	playingID   string
	activeIndex int
	touching    bool
	carryPlay   bool
}

// PlaybackOption はPlaybackの挙動を調整するオプション。
type PlaybackOption func(*Playback)

// WithCarryPlayState はスライド切り替え時に再生状態を次のスライドへ
// 引き継ぐ挙動を有効にする。デフォルトは切り替えで必ず停止する。
func WithCarryPlayState() PlaybackOption {
	return func(p *Playback) { p.carryPlay = true }
}

// NewPlayback はPlaybackの新しいインスタンスを生成する。
func NewPlayback(opts ...PlaybackOption) *Playback {
	p := &Playback{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlayingID は再生中のペーパーIDを返す。再生中でなければ空文字列。
func (p *Playback) PlayingID() string { return p.playingID }

// IsPlaying は指定IDが再生中かどうかを返す。
func (p *Playback) IsPlaying(id string) bool {
	return id != "" && p.playingID == id
}

// ActiveIndex は現在アクティブなスライドのインデックスを返す。
func (p *Playback) ActiveIndex() int { return p.activeIndex }

// Touching はドラッグ操作中かどうかを返す。
func (p *Playback) Touching() bool { return p.touching }

// Tap はカードのタップを処理する。再生中なら停止、停止中なら再生を開始し、
// タップ後に再生中となった場合にtrueを返す。呼び出し側はtrueのとき
// メディア再生を要求し、拒否されたらPlayRejectedを呼ぶこと。
// ドラッグ操作中のタップは無視する。
func (p *Playback) Tap(id string) bool {
	if p.touching || id == "" {
		return false
	}
	if p.playingID == id {
		p.playingID = ""
		return false
	}
	p.playingID = id
	return true
}

// PlayRejected はメディア側が再生要求を拒否したことを通知する
// （自動再生ポリシー等）。該当IDが再生中として記録されていれば取り消す。
func (p *Playback) PlayRejected(id string) {
	if p.playingID == id {
		p.playingID = ""
	}
}

// SlideChanged はアクティブスライドの切り替えを処理する。
// 再生状態はクリアし、引き継ぎオプションが有効かつ切り替え前に再生中だった
// 場合のみ新しいスライドのIDを再生中として引き継ぐ。
// 引き継いだ場合はtrueを返し、呼び出し側はメディア再生を要求すること。
func (p *Playback) SlideChanged(newIndex int, newID string) bool {
	wasPlaying := p.playingID != ""
	p.activeIndex = newIndex
	p.playingID = ""
	if p.carryPlay && wasPlaying && newID != "" {
		p.playingID = newID
		return true
	}
	return false
}

// SetTouching はドラッグ操作の開始・終了を記録する。
// ドラッグ開始時は再生を停止し、ポスター表示へ戻す。
func (p *Playback) SetTouching(touching bool) {
	p.touching = touching
	if touching {
		p.playingID = ""
	}
}

// Reset は再生状態を初期化する。
func (p *Playback) Reset() {
	p.playingID = ""
	p.activeIndex = 0
	p.touching = false
}

// Overlays はアクティブなペーパーに紐づくオーバーレイパネルの開閉状態を保持する。
// コメントパネルとその他操作パネルはそれぞれ高々1つのペーパーに対して開く。
type Overlays struct {
	commentsFor string
	actionsFor  string
}

// NewOverlays はOverlaysの新しいインスタンスを生成する。
func NewOverlays() *Overlays {
	return &Overlays{}
}

// CommentsOpenFor はコメントパネルが開いているペーパーIDを返す。閉じていれば空文字列。
func (o *Overlays) CommentsOpenFor() string { return o.commentsFor }

// ActionsOpenFor はその他操作パネルが開いているペーパーIDを返す。閉じていれば空文字列。
func (o *Overlays) ActionsOpenFor() string { return o.actionsFor }

// OpenComments は指定ペーパーのコメントパネルを開く。その他操作パネルは閉じる。
func (o *Overlays) OpenComments(paperID string) {
	o.commentsFor = paperID
	o.actionsFor = ""
}

// CloseComments はコメントパネルを閉じる。
func (o *Overlays) CloseComments() { o.commentsFor = "" }

// OpenActions は指定ペーパーのその他操作パネルを開く。コメントパネルは閉じる。
func (o *Overlays) OpenActions(paperID string) {
	o.actionsFor = paperID
	o.commentsFor = ""
}

// CloseActions はその他操作パネルを閉じる。
func (o *Overlays) CloseActions() { o.actionsFor = "" }

// ActivePaperChanged はアクティブなペーパーの切り替えを処理する。
// 開いていたパネルは切り替え前のペーパーに紐づくため、すべて閉じる。
func (o *Overlays) ActivePaperChanged() {
	o.commentsFor = ""
	o.actionsFor = ""
}
