package adapter

import (
	"context"
	"fmt"
	"strings"

	"nexus-discount/internal/pkg/httpclient"
	"nexus-discount/internal/service/discount/domain/port"
)

const ledgerJournalPath = "/journal-entries/discounts"

// InstanceResolver 按服务名找到一个健康实例，*nacos.Client 满足该接口。
type InstanceResolver interface {
	DiscoverServiceInstance(serviceName string) (string, int, error)
}

// LedgerHTTPAdapter 实现了 port.LedgerService，通过 HTTP 调用记账服务。
// 配置了 baseURL 时直接使用，否则通过服务发现找到记账服务实例。
type LedgerHTTPAdapter struct {
	client      *httpclient.Client
	baseURL     string
	resolver    InstanceResolver
	serviceName string
}

func NewLedgerHTTPAdapter(client *httpclient.Client, baseURL string, resolver InstanceResolver, serviceName string) *LedgerHTTPAdapter {
	return &LedgerHTTPAdapter{
		client:      client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		resolver:    resolver,
		serviceName: serviceName,
	}
}

func (a *LedgerHTTPAdapter) endpoint() (string, error) {
	if a.baseURL != "" {
		return a.baseURL + ledgerJournalPath, nil
	}
	if a.resolver == nil {
		return "", fmt.Errorf("ledger service address is not configured")
	}
	ip, port, err := a.resolver.DiscoverServiceInstance(a.serviceName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d%s", ip, port, ledgerJournalPath), nil
}

// PostDiscountJournal 过账一笔折扣分摊，返回凭证引用。
func (a *LedgerHTTPAdapter) PostDiscountJournal(ctx context.Context, journal port.DiscountJournal) (*port.JournalReference, error) {
	url, err := a.endpoint()
	if err != nil {
		return nil, fmt.Errorf("resolve ledger service: %w", err)
	}
	var ref port.JournalReference
	if err := a.client.PostJSON(ctx, url, journal, &ref); err != nil {
		return nil, fmt.Errorf("post discount journal: %w", err)
	}
	if ref.JournalEntryID == "" {
		return nil, fmt.Errorf("ledger service returned an empty journal entry id")
	}
	return &ref, nil
}
