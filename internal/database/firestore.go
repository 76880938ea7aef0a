package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// FirestoreCredentials is the service-account material used to reach Firestore.
type FirestoreCredentials struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

var (
	firestoreMu     sync.Mutex
	firestoreClient *firestore.Client
)

// Firestore returns the process-wide Firestore client, creating it on first
// use. Later calls reuse the same client regardless of creds.
func Firestore(ctx context.Context, creds FirestoreCredentials) (*firestore.Client, error) {
	firestoreMu.Lock()
	defer firestoreMu.Unlock()

	if firestoreClient != nil {
		return firestoreClient, nil
	}

	if creds.ProjectID == "" {
		return nil, fmt.Errorf("firestore project ID is required")
	}

	var opts []option.ClientOption
	// The emulator accepts unauthenticated clients.
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		credJSON, err := serviceAccountJSON(creds)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentialsJSON(credJSON))
	}

	client, err := firestore.NewClient(ctx, creds.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	firestoreClient = client
	return firestoreClient, nil
}

// CloseFirestore closes the process-wide client if one was created.
func CloseFirestore() error {
	firestoreMu.Lock()
	defer firestoreMu.Unlock()

	if firestoreClient == nil {
		return nil
	}
	err := firestoreClient.Close()
	firestoreClient = nil
	if err != nil {
		return fmt.Errorf("failed to close firestore client: %w", err)
	}
	return nil
}

func serviceAccountJSON(creds FirestoreCredentials) ([]byte, error) {
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, fmt.Errorf("firestore client email and private key are required")
	}

	data, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   creds.ProjectID,
		"client_email": creds.ClientEmail,
		"private_key":  creds.PrivateKey,
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode service account: %w", err)
	}
	return data, nil
}
