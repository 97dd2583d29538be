// Dev harness: connects to a local server, creates or joins a room, and
// lets you drive it from stdin.
//
// Commands:
//
//	create <name>         create a room as <name>
//	join <code> <name>    join room <code> as <name>
//	bot                   add a bot (host only)
//	start                 start the match (host only)
//	play 3s 3c            play the named cards (rank + suit letter)
//	pass                  pass the turn
//	rooms                 list public rooms
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	msgCreateRoom = 101
	msgJoinRoom   = 102
	msgAddBot     = 103
	msgStartMatch = 106
	msgPlayCards  = 107
	msgPassTurn   = 108
	msgListRooms  = 111

	msgHandSnapshot = 202
)

type card struct {
	Rank int `json:"rank"`
	Suit int `json:"suit"`
	ID   int `json:"id"`
}

var suitLetters = map[byte]int{'s': 0, 'c': 1, 'd': 2, 'h': 3}
var rankNames = map[string]int{
	"3": 0, "4": 1, "5": 2, "6": 3, "7": 4, "8": 5, "9": 6,
	"10": 7, "j": 8, "q": 9, "k": 10, "a": 11, "2": 12,
}

func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func sendJSON(c *websocket.Conn, msgID uint16, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Println("Marshal error:", err)
		return
	}
	if err := send(c, msgID, data); err != nil {
		log.Println("Write error:", err)
	}
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	playerID := uuid.NewString()
	var hand []card

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			if msgID == msgHandSnapshot {
				var snap struct {
					Cards []card `json:"cards"`
				}
				if err := json.Unmarshal(data, &snap); err == nil {
					hand = snap.Cards
				}
			}
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	go func() {
		<-interrupt
		log.Println("Interrupt received, closing connection.")
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		os.Exit(0)
	}()

	log.Printf("Client started as player %s. Type 'create <name>' to begin.", playerID)

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		default:
		}

		text, _ := reader.ReadString('\n')
		fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "create":
			name := "dev"
			if len(fields) > 1 {
				name = fields[1]
			}
			sendJSON(c, msgCreateRoom, map[string]interface{}{
				"player_id": playerID, "name": name, "visible": true,
			})
		case "join":
			if len(fields) < 3 {
				fmt.Println("usage: join <code> <name>")
				continue
			}
			sendJSON(c, msgJoinRoom, map[string]interface{}{
				"player_id": playerID, "name": fields[2], "code": fields[1],
			})
		case "bot":
			send(c, msgAddBot, []byte("{}"))
		case "start":
			send(c, msgStartMatch, []byte("{}"))
		case "pass":
			send(c, msgPassTurn, []byte("{}"))
		case "rooms":
			send(c, msgListRooms, []byte("{}"))
		case "play":
			cards, err := parseCards(fields[1:], hand)
			if err != nil {
				fmt.Println(err)
				continue
			}
			sendJSON(c, msgPlayCards, map[string]interface{}{"cards": cards})
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

// parseCards resolves names like "10h" or "qs" against the last received
// hand so the play carries the server-assigned card ids.
func parseCards(names []string, hand []card) ([]card, error) {
	var out []card
	for _, name := range names {
		if len(name) < 2 {
			return nil, fmt.Errorf("bad card: %s", name)
		}
		suit, ok := suitLetters[name[len(name)-1]]
		if !ok {
			return nil, fmt.Errorf("bad suit in %s", name)
		}
		rank, ok := rankNames[name[:len(name)-1]]
		if !ok {
			return nil, fmt.Errorf("bad rank in %s", name)
		}
		found := false
		for _, h := range hand {
			if h.Rank == rank && h.Suit == suit {
				out = append(out, h)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s is not in your hand", name)
		}
	}
	return out, nil
}
