package service

import (
	"context"
	"fmt"

	"github.com/claim-deploy/claim-deploy-backend/internal/cleanup/domain"
	provisionsvc "github.com/claim-deploy/claim-deploy-backend/internal/provision/service"
	"github.com/claim-deploy/claim-deploy-backend/internal/vercel"
)

// ProjectKind reaps temporary projects. A project linked to a source
// repository other than the demo's own repo is protected even when it
// carries the temporary prefix; a link back to the demo repo does not save
// it.
type ProjectKind struct {
	client  *vercel.Client
	repoURL string
}

func NewProjectKind(client *vercel.Client, repoURL string) *ProjectKind {
	return &ProjectKind{client: client, repoURL: repoURL}
}

func (p *ProjectKind) Name() string { return "projects" }

func (p *ProjectKind) Prefix() string { return provisionsvc.TempProjectPrefix }

func (p *ProjectKind) ListPage(ctx context.Context, until int64) ([]domain.Resource, int64, error) {
	projects, pagination, err := p.client.ListProjects(ctx, listPageLimit, until)
	if err != nil {
		return nil, 0, err
	}

	resources := make([]domain.Resource, 0, len(projects))
	for _, project := range projects {
		resources = append(resources, domain.Resource{
			ID:        project.ID,
			Name:      project.Name,
			CreatedAt: project.CreatedAt,
			Protected: p.isForeignLink(project.Link),
		})
	}

	var next int64
	if pagination != nil {
		next = pagination.Next
	}
	return resources, next, nil
}

func (p *ProjectKind) Delete(ctx context.Context, id string) error {
	return p.client.DeleteProject(ctx, id)
}

func (p *ProjectKind) isForeignLink(link *vercel.RepoLink) bool {
	if link == nil {
		return false
	}
	if p.repoURL == "" {
		// No configured repo; treat every link as foreign.
		return true
	}
	return fmt.Sprintf("https://github.com/%s/%s", link.Org, link.Repo) != p.repoURL
}
