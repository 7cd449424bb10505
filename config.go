package main

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/pkg/errors"
)

type CloudConfig struct {
	cfg     aws.Config
	region  string
	profile string
}

type Option func(*CloudConfig)

func withRegion(region string) Option {
	return func(cc *CloudConfig) {
		cc.region = region
	}
}

func withProfile(profile string) Option {
	return func(cc *CloudConfig) {
		cc.profile = profile
	}
}

func mustInitConfig(opts ...Option) *CloudConfig {
	defaultOpts := &CloudConfig{
		cfg:     aws.Config{},
		region:  "",
		profile: "",
	}

	for _, opt := range opts {
		opt(defaultOpts)
	}

	cfg, err := config.LoadDefaultConfig(
		context.Background(),
		config.WithSharedConfigProfile(defaultOpts.profile),
		config.WithRegion(defaultOpts.region),
	)
	if err != nil {
		panic(err)
	}

	defaultOpts.cfg = cfg
	return defaultOpts
}

func (c *CloudConfig) clients(opts ...ClientOpt) *Clients {
	o := &Clients{}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

type Clients struct {
	ecr *ecr.Client
	sts *sts.Client
}

type ClientOpt func(*Clients)

func ecrService(cfg aws.Config) ClientOpt {
	return func(c *Clients) {
		c.ecr = ecr.NewFromConfig(cfg)
	}
}

func stsService(cfg aws.Config) ClientOpt {
	return func(c *Clients) {
		c.sts = sts.NewFromConfig(cfg)
	}
}

// accountID resolves the caller's account through STS, used when AWS_ID is
// not configured explicitly.
func (c *Clients) accountID(ctx context.Context) (string, error) {
	resp, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", errors.Wrap(err, "sts caller identity")
	}

	return *resp.Account, nil
}
