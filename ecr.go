package main

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/pkg/errors"
)

// registryAPI is the slice of the ECR API the migration consumes. The two
// paginator interfaces come from the SDK, so both *ecr.Client and test
// fakes satisfy it.
type registryAPI interface {
	ecr.DescribeRepositoriesAPIClient
	ecr.ListImagesAPIClient
	GetAuthorizationToken(ctx context.Context, params *ecr.GetAuthorizationTokenInput, optFns ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error)
}

type ECR struct {
	api registryAPI
	ctx context.Context
}

func newEcr(api registryAPI) *ECR {
	return &ECR{
		api: api,
		ctx: context.Background(),
	}
}

// listRepositories walks the DescribeRepositories pages and returns every
// repository name, in the order the provider yields them.
func (e *ECR) listRepositories() ([]string, error) {
	var repositories []string

	paginator := ecr.NewDescribeRepositoriesPaginator(e.api, &ecr.DescribeRepositoriesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(e.ctx)
		if err != nil {
			return nil, errors.Wrap(err, "describing repositories")
		}

		for _, repository := range page.Repositories {
			repositories = append(repositories, *repository.RepositoryName)
		}
	}

	return repositories, nil
}

// listTags returns the tags of one repository. Untagged manifests carry no
// imageTag field and are filtered out, they are not an error.
func (e *ECR) listTags(repository string) ([]string, error) {
	var tags []string

	paginator := ecr.NewListImagesPaginator(e.api, &ecr.ListImagesInput{
		RepositoryName: aws.String(repository),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(e.ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "listing images of %s", repository)
		}

		for _, image := range page.ImageIds {
			if image.ImageTag == nil || *image.ImageTag == "" {
				continue
			}
			tags = append(tags, *image.ImageTag)
		}
	}

	return tags, nil
}

type authorization struct {
	username string
	password string
}

// authenticate fetches a short-lived ECR token. The decoded token is a
// user:password pair, the username is conventionally AWS.
func (e *ECR) authenticate() (authorization, error) {
	authOutput, err := e.api.GetAuthorizationToken(e.ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return authorization{}, errors.Wrap(err, "requesting authorization token")
	}

	if len(authOutput.AuthorizationData) == 0 {
		return authorization{}, errors.New("no authorizationData found in the response")
	}

	authData := authOutput.AuthorizationData[0]
	token, err := base64.StdEncoding.DecodeString(*authData.AuthorizationToken)
	if err != nil {
		return authorization{}, errors.Wrap(err, "decoding authorization token")
	}

	auth := strings.SplitN(string(token), ":", 2)
	if len(auth) != 2 {
		return authorization{}, errors.New("malformed authorization token")
	}

	return authorization{
		username: auth[0],
		password: auth[1],
	}, nil
}
