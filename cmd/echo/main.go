package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"projekt/machine/cmd/base"
	"projekt/machine/lib/device"
	"projekt/machine/lib/protocol"
	"projekt/machine/lib/secure"
)

func init() {
	log.SetFlags(log.Ltime)
}

func main() {
	argListen := flag.String("listen", "", "address to serve the echo protocol on")
	argConnect := flag.String("connect", "", "address of an echo server to talk to")
	argCount := flag.Int("count", 3, "number of messages the client sends")
	argSeed := flag.Int64("seed", 0, "seed for predictable keys, 0 for random ones")
	flag.Parse()

	randSource := base.CryptoRandom()
	if *argSeed != 0 {
		randSource = base.PredictableRandom(*argSeed)
	}
	keys := base.GenerateKeys(randSource)

	switch {
	case *argListen != "":
		serve(*argListen, keys)
	case *argConnect != "":
		talk(*argConnect, keys, *argCount)
	default:
		log.Fatalln("either -listen or -connect is required")
	}
}

func serve(address string, keys device.KeyPair) {
	definition := base.ServerDefinition()
	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Fatalln("failed to listen:", err)
	}
	log.Println("listening on", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Fatalln("failed to accept:", err)
		}
		go func() {
			encrypted, err := secure.Server(conn, keys.Noise())
			if err != nil {
				log.Println("handshake failed:", err)
				_ = conn.Close()
				return
			}
			log.Println("DEVICE", hex.EncodeToString(encrypted.RemoteIdentity()))
			session := protocol.NewSession(definition, protocol.NewWire(encrypted), encrypted.Close)
			done := make(chan struct{})
			go drainErrors(session, done)
			if err := session.Run(context.Background()); err != nil {
				log.Println("session ended with error:", err)
			}
			close(done)
		}()
	}
}

func talk(address string, keys device.KeyPair, count int) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		log.Fatalln("failed to connect:", err)
	}
	encrypted, err := secure.Client(conn, keys.Noise())
	if err != nil {
		log.Fatalln("handshake failed:", err)
	}
	log.Println("SERVER-DEVICE", hex.EncodeToString(encrypted.RemoteIdentity()))

	echoes := make(chan string, count)
	session := protocol.NewSession(base.ClientDefinition(echoes), protocol.NewWire(encrypted), encrypted.Close)
	done := make(chan struct{})
	defer close(done)
	go drainErrors(session, done)

	result := make(chan error, 1)
	go func() { result <- session.Run(context.Background()) }()

	for i := 1; i <= count; i++ {
		payload := fmt.Sprintf("noise %d", i)
		if err := session.Send(wrapperspb.String(payload)); err != nil {
			log.Fatalln("failed to send:", err)
		}
		log.Println("echo:", <-echoes)
	}

	if err := session.Close(); err != nil {
		log.Fatalln("failed to close session:", err)
	}
	if err := <-result; err != nil {
		log.Fatalln("session ended with error:", err)
	}
}

func drainErrors(session *protocol.Session, done <-chan struct{}) {
	for {
		select {
		case err := <-session.Errors():
			log.Println("protocol error:", err)
		case <-done:
			return
		}
	}
}
