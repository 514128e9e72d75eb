package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/bcrypt"
)

// ---------- helpers ----------

type testEnv struct {
	world   *World
	hub     *Hub
	tokens  *TokenIssuer
	tcpAddr string
	http    *httptest.Server
}

// startTestServer runs a full server on loopback: the tick loop, the TCP
// acceptor and the HTTP routes. Everything stops at test cleanup.
func startTestServer(t *testing.T, adminHash string, maxConnsPerIP int) *testEnv {
	t.Helper()

	arena, err := NewArena(800, 600, nil)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	rules := DefaultRules()
	rules.MaxPickups = 0
	tokens := NewTokenIssuer("test-secret")
	world := NewWorld(arena, rules, tokens)
	hub := NewHub(maxConnsPerIP, 0)
	analytics := NewAnalytics(nil)
	srv := NewServer(world, hub, analytics, tokens)
	game := NewGame(world, hub, analytics, DefaultTickRate)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go game.Run(ctx)
	go srv.ServeTCP(ctx, ln)

	httpSrv := httptest.NewServer(SetupRoutes(srv, NewAdminAuth(adminHash), ln.Addr().String()))
	t.Cleanup(func() {
		cancel()
		httpSrv.Close()
		analytics.Stop()
	})

	return &testEnv{
		world:   world,
		hub:     hub,
		tokens:  tokens,
		tcpAddr: ln.Addr().String(),
		http:    httpSrv,
	}
}

type tcpClient struct {
	conn net.Conn
	r    *bufio.Reader
}

func dialTCP(t *testing.T, addr string) *tcpClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial TCP: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &tcpClient{conn: conn, r: bufio.NewReader(conn)}
}

func (c *tcpClient) readLine(t *testing.T) []byte {
	t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read TCP: %v", err)
	}
	return line
}

func (c *tcpClient) readInit(t *testing.T) InitMsg {
	t.Helper()
	var init InitMsg
	if err := json.Unmarshal(c.readLine(t), &init); err != nil {
		t.Fatalf("unmarshal init: %v", err)
	}
	if init.Kind != MsgInit {
		t.Fatalf("expected init, got %s", init.Kind)
	}
	return init
}

func (c *tcpClient) readState(t *testing.T) GameState {
	t.Helper()
	var gs GameState
	if err := json.Unmarshal(c.readLine(t), &gs); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if gs.Kind != MsgState {
		t.Fatalf("expected state, got %s", gs.Kind)
	}
	return gs
}

func (c *tcpClient) send(t *testing.T, frame string) {
	t.Helper()
	if _, err := c.conn.Write([]byte(frame)); err != nil {
		t.Fatalf("write TCP: %v", err)
	}
}

// waitClosed reads until the server closes the stream
func (c *tcpClient) waitClosed(t *testing.T) {
	t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, err := c.r.ReadBytes('\n'); err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("expected EOF, got %v", err)
			}
			return
		}
	}
}

func hasProjectileFrom(gs GameState, owner int) bool {
	for _, p := range gs.Projectiles {
		if p.Owner == owner {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

const shootFrame = `{"kind":"input","keys":{"shoot":true}}` + "\n"

// ---------- TCP transport ----------

func TestTCPInitThenState(t *testing.T) {
	env := startTestServer(t, "", 0)
	c := dialTCP(t, env.tcpAddr)

	init := c.readInit(t)
	if init.PlayerID != 1 {
		t.Errorf("expected player 1, got %d", init.PlayerID)
	}
	pid, sub, err := env.tokens.ParseToken(init.PlayerToken)
	if err != nil || pid != init.PlayerID || sub == "" {
		t.Errorf("token should verify for player %d: pid=%d err=%v", init.PlayerID, pid, err)
	}
	if init.Arena == nil || init.Arena.Width != 800 || init.Arena.TankSize != 40 {
		t.Errorf("unexpected arena info: %+v", init.Arena)
	}

	gs := c.readState(t)
	ps, ok := gs.Players[init.PlayerID]
	if !ok {
		t.Fatal("state should include the new player")
	}
	if ps.HP != DefaultRules().MaxHP || ps.Weapon != WeaponBasic {
		t.Errorf("unexpected player state: %+v", ps)
	}
}

func TestTCPShootSpawnsProjectile(t *testing.T) {
	env := startTestServer(t, "", 0)
	c := dialTCP(t, env.tcpAddr)
	id := c.readInit(t).PlayerID

	c.send(t, shootFrame)
	for i := 0; i < 120; i++ {
		if hasProjectileFrom(c.readState(t), id) {
			return
		}
	}
	t.Error("no projectile appeared after shooting")
}

func TestTCPFrameSplitAcrossWrites(t *testing.T) {
	env := startTestServer(t, "", 0)
	c := dialTCP(t, env.tcpAddr)
	id := c.readInit(t).PlayerID

	c.send(t, shootFrame[:10])
	time.Sleep(20 * time.Millisecond)
	c.send(t, shootFrame[10:])
	for i := 0; i < 120; i++ {
		if hasProjectileFrom(c.readState(t), id) {
			return
		}
	}
	t.Error("split frame was not applied")
}

func TestTCPMalformedFramesKeepConnection(t *testing.T) {
	env := startTestServer(t, "", 0)
	c := dialTCP(t, env.tcpAddr)
	id := c.readInit(t).PlayerID

	c.send(t, "garbage\n")
	c.send(t, `{"kind":"input","keys":[1,2]}`+"\n")
	c.send(t, `{"kind":"chat","keys":{}}`+"\n")
	c.send(t, `{"kind":"input","keys":{"mouse_pos":[1]}}`+"\n")
	c.send(t, shootFrame)

	for i := 0; i < 120; i++ {
		if hasProjectileFrom(c.readState(t), id) {
			return
		}
	}
	t.Error("valid input after malformed frames was not applied")
}

func TestTCPDisconnectRemovesPlayer(t *testing.T) {
	env := startTestServer(t, "", 0)
	a := dialTCP(t, env.tcpAddr)
	a.readInit(t)
	b := dialTCP(t, env.tcpAddr)
	bid := b.readInit(t).PlayerID

	waitFor(t, "two players", func() bool { return env.world.PlayerCount() == 2 })
	b.conn.Close()
	waitFor(t, "player removal", func() bool {
		return env.world.PlayerCount() == 1 && env.hub.Count() == 1
	})

	gone := false
	for i := 0; i < 240 && !gone; i++ {
		_, present := a.readState(t).Players[bid]
		gone = !present
	}
	if !gone {
		t.Error("disconnected player should leave the broadcast state")
	}
	if env.hub.TotalConns() != 1 {
		t.Errorf("expected 1 tracked connection, got %d", env.hub.TotalConns())
	}
}

func TestTCPPlayerIDsNotReused(t *testing.T) {
	env := startTestServer(t, "", 0)
	a := dialTCP(t, env.tcpAddr)
	first := a.readInit(t).PlayerID
	a.conn.Close()
	waitFor(t, "player removal", func() bool { return env.world.PlayerCount() == 0 })

	b := dialTCP(t, env.tcpAddr)
	if second := b.readInit(t).PlayerID; second == first {
		t.Errorf("player id %d was reused", first)
	}
}

func TestTCPPerIPLimit(t *testing.T) {
	env := startTestServer(t, "", 1)
	a := dialTCP(t, env.tcpAddr)
	a.readInit(t)

	b := dialTCP(t, env.tcpAddr)
	b.waitClosed(t)
	if env.world.PlayerCount() != 1 {
		t.Errorf("rejected connection should not create a player, have %d", env.world.PlayerCount())
	}
}

// ---------- WebSocket transport ----------

func dialWS(t *testing.T, env *testEnv, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read WS: %v", err)
	}
	return msgType, raw
}

func TestWSTextTransport(t *testing.T) {
	env := startTestServer(t, "", 0)
	conn := dialWS(t, env, "")

	_, raw := readWS(t, conn)
	var init InitMsg
	if err := json.Unmarshal(raw, &init); err != nil || init.Kind != MsgInit {
		t.Fatalf("expected init first, got %s (%v)", raw, err)
	}

	// A message without a trailing newline is still one frame
	msg := strings.TrimSuffix(shootFrame, "\n")
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write WS: %v", err)
	}
	for i := 0; i < 120; i++ {
		msgType, raw := readWS(t, conn)
		if msgType != websocket.TextMessage {
			t.Fatalf("expected text frames, got type %d", msgType)
		}
		var gs GameState
		if err := json.Unmarshal(raw, &gs); err != nil {
			t.Fatalf("unmarshal state: %v", err)
		}
		if hasProjectileFrom(gs, init.PlayerID) {
			return
		}
	}
	t.Error("no projectile appeared after shooting over WS")
}

func TestWSMsgpackState(t *testing.T) {
	env := startTestServer(t, "", 0)
	conn := dialWS(t, env, "?enc=msgpack")

	msgType, raw := readWS(t, conn)
	if msgType != websocket.TextMessage {
		t.Fatalf("init should be a text frame, got type %d", msgType)
	}
	var init InitMsg
	if err := json.Unmarshal(raw, &init); err != nil {
		t.Fatalf("unmarshal init: %v", err)
	}

	msgType, raw = readWS(t, conn)
	if msgType != websocket.BinaryMessage {
		t.Fatalf("expected binary state, got type %d", msgType)
	}
	var gs GameState
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&gs); err != nil {
		t.Fatalf("msgpack decode: %v", err)
	}
	if gs.Kind != MsgState {
		t.Errorf("expected kind state, got %q", gs.Kind)
	}
	if _, ok := gs.Players[init.PlayerID]; !ok {
		t.Error("binary state should include the player")
	}
}

func TestWSAndTCPShareWorld(t *testing.T) {
	env := startTestServer(t, "", 0)
	c := dialTCP(t, env.tcpAddr)
	c.readInit(t)
	conn := dialWS(t, env, "")
	_, raw := readWS(t, conn)
	var init InitMsg
	json.Unmarshal(raw, &init)

	for i := 0; i < 240; i++ {
		if _, ok := c.readState(t).Players[init.PlayerID]; ok {
			return
		}
	}
	t.Error("TCP client should see the WS player")
}

// ---------- HTTP routes ----------

func TestStatsEndpoint(t *testing.T) {
	env := startTestServer(t, "", 0)
	c := dialTCP(t, env.tcpAddr)
	c.readInit(t)
	waitFor(t, "registration", func() bool { return env.hub.Count() == 1 })

	resp, err := http.Get(env.http.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Players != 1 || stats.Connections != 1 {
		t.Errorf("expected 1 player and connection, got %+v", stats)
	}
}

func TestJoinQRCode(t *testing.T) {
	env := startTestServer(t, "", 0)
	resp, err := http.Get(env.http.URL + "/join.png")
	if err != nil {
		t.Fatalf("GET /join.png: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
}

func TestJoinTarget(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/join.png", nil)
	r.Host = "game.example:8080"
	tests := []struct {
		joinAddr string
		want     string
	}{
		{":5000", "game.example:5000"},
		{"0.0.0.0:5000", "game.example:5000"},
		{"10.0.0.7:5000", "10.0.0.7:5000"},
		{"not-an-addr", "not-an-addr"},
	}
	for _, tt := range tests {
		if got := joinTarget(tt.joinAddr, r); got != tt.want {
			t.Errorf("joinTarget(%q) = %q, want %q", tt.joinAddr, got, tt.want)
		}
	}
}

// ---------- admin ----------

func adminRequest(t *testing.T, method, url, password string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(method, url, nil)
	if password != "" {
		req.SetBasicAuth(adminUser, password)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func testAdminHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func TestAdminDisabledWithoutHash(t *testing.T) {
	env := startTestServer(t, "", 0)
	resp := adminRequest(t, http.MethodGet, env.http.URL+"/admin/events", "anything")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAdminEvents(t *testing.T) {
	env := startTestServer(t, testAdminHash(t, "hunter2"), 0)

	resp := adminRequest(t, http.MethodGet, env.http.URL+"/admin/events", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Error("401 should carry a WWW-Authenticate challenge")
	}

	resp = adminRequest(t, http.MethodGet, env.http.URL+"/admin/events", "wrong")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with a wrong password, got %d", resp.StatusCode)
	}

	resp = adminRequest(t, http.MethodGet, env.http.URL+"/admin/events", "hunter2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Days int `json:"days"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Days != defaultHistoryDays {
		t.Errorf("expected %d days, got %d", defaultHistoryDays, body.Days)
	}

	resp = adminRequest(t, http.MethodGet, env.http.URL+"/admin/events?days=0", "hunter2")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for days=0, got %d", resp.StatusCode)
	}
}

func TestAdminKick(t *testing.T) {
	env := startTestServer(t, testAdminHash(t, "hunter2"), 0)
	c := dialTCP(t, env.tcpAddr)
	init := c.readInit(t)
	waitFor(t, "registration", func() bool { return env.hub.Count() == 1 })

	resp := adminRequest(t, http.MethodPost, env.http.URL+"/admin/kick?token=bogus", "hunter2")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad token, got %d", resp.StatusCode)
	}

	stranger, err := env.tokens.Issue(99)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	resp = adminRequest(t, http.MethodPost, env.http.URL+"/admin/kick?token="+stranger, "hunter2")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown player, got %d", resp.StatusCode)
	}

	resp = adminRequest(t, http.MethodPost, env.http.URL+"/admin/kick?token="+init.PlayerToken, "hunter2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	c.waitClosed(t)
	waitFor(t, "kicked player removal", func() bool { return env.world.PlayerCount() == 0 })
}
