package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"

	"github.com/nhle/kilamea/internal/model"
)

const inboxName = "INBOX"

// connectIMAP dials the account's incoming server, authenticates,
// and selects INBOX. The caller must Logout the returned client.
// Cancelling ctx closes the connection under any blocked command.
func connectIMAP(ctx context.Context, account *model.Account) (*imapclient.Client, func(), error) {
	addr := net.JoinHostPort(account.IncomingHost, strconv.Itoa(account.IncomingPort))

	var client *imapclient.Client
	var err error
	if account.SSLActive {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	release := func() {
		stop()
		_ = client.Logout().Wait()
	}

	if err := authenticateIMAP(client, account); err != nil {
		release()
		return nil, nil, err
	}

	if _, err := client.Select(inboxName, nil).Wait(); err != nil {
		release()
		return nil, nil, fmt.Errorf("selecting %s: %w", inboxName, err)
	}

	return client, release, nil
}

// authenticateIMAP uses OAUTHBEARER when the account carries an OAuth
// token pair and a plain LOGIN otherwise.
func authenticateIMAP(client *imapclient.Client, account *model.Account) error {
	var err error
	if access := account.AccessToken(); access != "" {
		err = client.Authenticate(sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
			Username: account.User,
			Token:    access,
		}))
	} else {
		err = client.Login(account.User, account.Password).Wait()
	}
	if err != nil {
		return &AuthError{
			Account: account.Email,
			Message: fmt.Sprintf("authentication failed for %s: %v", account.User, err),
		}
	}
	return nil
}

// receiveIMAP fetches every unseen message in INBOX. Fetching the
// body without PEEK marks the messages seen on the server.
func receiveIMAP(ctx context.Context, account *model.Account) ([]NormalizedMessage, error) {
	client, release, err := connectIMAP(ctx, account)
	if err != nil {
		return nil, err
	}
	defer release()

	searchData, err := client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	bodySection := &imap.FetchItemBodySection{}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var out []NormalizedMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			return nil, fmt.Errorf("collecting message: %w", err)
		}

		raw := buf.FindBodySection(bodySection)
		if raw == nil {
			continue
		}

		nm := ParseMessage(raw)
		nm.ReceivedAt = buf.InternalDate
		nm.Unread = true
		if nm.Reference == "" {
			// UIDs are stable within the mailbox.
			nm.Reference = fmt.Sprintf("uid:%d", buf.UID)
		}
		out = append(out, nm)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	return out, nil
}

// expungeIMAP flags the messages with the given Message-IDs as deleted
// and expunges INBOX.
func expungeIMAP(ctx context.Context, account *model.Account, references []string) error {
	client, release, err := connectIMAP(ctx, account)
	if err != nil {
		return err
	}
	defer release()

	var uids []imap.UID
	for _, ref := range references {
		criteria := &imap.SearchCriteria{}
		if uid, ok := parseUIDReference(ref); ok {
			criteria.UID = []imap.UIDSet{imap.UIDSetNum(uid)}
		} else {
			criteria.Header = []imap.SearchCriteriaHeaderField{
				{Key: "Message-Id", Value: ref},
			}
		}

		data, err := client.UIDSearch(criteria, nil).Wait()
		if err != nil {
			return fmt.Errorf("searching message %s: %w", ref, err)
		}
		uids = append(uids, data.AllUIDs()...)
	}
	if len(uids) == 0 {
		return nil
	}

	storeCmd := client.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("flagging messages deleted: %w", err)
	}

	if err := client.Expunge().Close(); err != nil {
		return fmt.Errorf("expunging %s: %w", inboxName, err)
	}
	return nil
}

func parseUIDReference(ref string) (imap.UID, bool) {
	var uid uint32
	if _, err := fmt.Sscanf(ref, "uid:%d", &uid); err != nil || uid == 0 {
		return 0, false
	}
	return imap.UID(uid), true
}
