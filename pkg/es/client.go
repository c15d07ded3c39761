// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"org-directory-go/internal/config"
	"org-directory-go/internal/model"
	"org-directory-go/pkg/log"
)

// Client 维护组织检索索引。索引只是关系库的读模型。
type Client struct {
	es    *elasticsearch.Client
	index string
}

// NewClient 初始化 Elasticsearch 客户端。
func NewClient(esCfg config.ElasticsearchConfig) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{es: client, index: esCfg.IndexName}, nil
}

const organizationMapping = `{
	"mappings": {
		"properties": {
			"id": { "type": "long" },
			"name": {
				"type": "text",
				"fields": { "keyword": { "type": "keyword", "ignore_above": 256 } }
			},
			"building_id": { "type": "long" },
			"address": { "type": "text" },
			"location": { "type": "geo_point" },
			"phones": { "type": "keyword" },
			"activity_ids": { "type": "long" },
			"activity_names": { "type": "text" },
			"updated_at": { "type": "date" }
		}
	}
}`

// EnsureIndex 检查索引是否存在，如果不存在则创建它
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	// 如果 res.StatusCode 是 200，说明索引已存在
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", c.index)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(organizationMapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", c.index, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("创建索引时 Elasticsearch 返回错误: %s", res.String())
	}

	log.Infof("索引 '%s' 创建成功", c.index)
	return nil
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// IndexOrganization 写入或覆盖一个组织文档。
func (c *Client) IndexOrganization(ctx context.Context, doc model.OrganizationDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: docID(doc.ID),
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index organization %d: %s", doc.ID, res.String())
	}
	return nil
}

// DeleteOrganization 删除组织文档。文档不存在视为成功。
func (c *Client) DeleteOrganization(ctx context.Context, id uint) error {
	req := esapi.DeleteRequest{
		Index:      c.index,
		DocumentID: docID(id),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to delete organization %d: %s", id, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source model.OrganizationDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchOrganizations 在名称、活动名称、地址和电话上做全文检索。
func (c *Client) SearchOrganizations(ctx context.Context, query string, size int) ([]model.OrganizationDocument, error) {
	body := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"name^3", "activity_names", "address", "phones"},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	docs := make([]model.OrganizationDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}
