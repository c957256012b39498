package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"plankton/pkg/image"
	"plankton/pkg/models"
)

// imageFlags are the attributes accepted by register and update.
type imageFlags struct {
	name            string
	store           string
	diskFormat      string
	containerFormat string
	status          string
	size            int64
	checksum        string
	public          bool
	properties      map[string]string
}

func (f *imageFlags) bind(flags *pflag.FlagSet, withName bool) {
	if withName {
		flags.StringVar(&f.name, "name", "", "Image name")
	}
	flags.StringVar(&f.store, "store", image.Store, "Image store")
	flags.StringVar(&f.diskFormat, "disk-format", "", "Disk format")
	flags.StringVar(&f.containerFormat, "container-format", "", "Container format")
	flags.StringVar(&f.status, "status", "", "Image status")
	flags.Int64Var(&f.size, "size", 0, "Expected object size in bytes")
	flags.StringVar(&f.checksum, "checksum", "", "Expected object checksum")
	flags.BoolVar(&f.public, "public", false, "Make the image visible to every account")
	flags.StringToStringVarP(&f.properties, "property", "p", nil, "Image property as key=value (repeatable)")
}

// params turns the explicitly set flags into image parameters.
func (f *imageFlags) params(flags *pflag.FlagSet) models.ImageParams {
	var params models.ImageParams
	if flags.Changed("name") {
		params.Name = &f.name
	}
	if flags.Changed("store") {
		params.Store = &f.store
	}
	if flags.Changed("disk-format") {
		params.DiskFormat = &f.diskFormat
	}
	if flags.Changed("container-format") {
		params.ContainerFormat = &f.containerFormat
	}
	if flags.Changed("status") {
		params.Status = &f.status
	}
	if flags.Changed("size") {
		params.Size = &f.size
	}
	if flags.Changed("checksum") {
		params.Checksum = &f.checksum
	}
	if flags.Changed("public") {
		params.IsPublic = &f.public
	}
	if len(f.properties) > 0 {
		params.Properties = f.properties
	}
	return params
}

// listFlags are the filters and ordering accepted by the listings.
type listFlags struct {
	filters models.ListFilters
	params  models.ListParams
}

func (f *listFlags) bind(flags *pflag.FlagSet) {
	flags.StringVar(&f.filters.Name, "name", "", "Only images with this name")
	flags.StringVar(&f.filters.DiskFormat, "disk-format", "", "Only images with this disk format")
	flags.StringVar(&f.filters.ContainerFormat, "container-format", "", "Only images with this container format")
	flags.StringVar(&f.filters.Status, "status", "", "Only images with this status")
	flags.Int64Var(&f.filters.SizeMin, "size-min", 0, "Only images of at least this size")
	flags.Int64Var(&f.filters.SizeMax, "size-max", 0, "Only images of at most this size")
	flags.StringVar(&f.params.SortKey, "sort-key", image.DefaultSortKey, "Sort key")
	flags.StringVar(&f.params.SortDir, "sort-dir", image.SortDesc, "Sort direction (asc or desc)")
}

var (
	registerFlags imageFlags
	updateFlags   imageFlags
	listOpts      listFlags
	sharedOpts    listFlags
	publicOpts    listFlags
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Register, inspect and share images",
}

var registerCmd = &cobra.Command{
	Use:   "register [name] [pithos://account/container/object]",
	Short: "Register an object as an image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b image.Backend) error {
			img, err := b.Register(args[0], args[1], registerFlags.params(cmd.Flags()))
			if err != nil {
				return fmt.Errorf("failed to register image: %w", err)
			}
			return printJSON(img)
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get [image-id]",
	Short: "Show an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b image.Backend) error {
			img, err := b.GetImage(args[0])
			if err != nil {
				return fmt.Errorf("failed to get image: %w", err)
			}
			return printJSON(img)
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [image-id]",
	Short: "Update image metadata; unset flags are left unchanged",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b image.Backend) error {
			img, err := b.UpdateMetadata(args[0], updateFlags.params(cmd.Flags()))
			if err != nil {
				return fmt.Errorf("failed to update image: %w", err)
			}
			return printJSON(img)
		})
	},
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister [image-id]",
	Short: "Remove image metadata, keeping the object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b image.Backend) error {
			if err := b.Unregister(args[0]); err != nil {
				return fmt.Errorf("failed to unregister image: %w", err)
			}
			fmt.Printf("Image %s unregistered\n", args[0])
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List images visible to the user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b image.Backend) error {
			images, err := b.ListImages(listOpts.filters, listOpts.params)
			if err != nil {
				return fmt.Errorf("failed to list images: %w", err)
			}
			return printJSON(images)
		})
	},
}

var sharedCmd = &cobra.Command{
	Use:   "shared [member]",
	Short: "List private images of member shared with the user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b image.Backend) error {
			images, err := b.ListSharedImages(args[0], sharedOpts.filters, sharedOpts.params)
			if err != nil {
				return fmt.Errorf("failed to list shared images: %w", err)
			}
			return printJSON(images)
		})
	},
}

var publicCmd = &cobra.Command{
	Use:   "public",
	Short: "List public images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b image.Backend) error {
			images, err := b.ListPublicImages(publicOpts.filters, publicOpts.params)
			if err != nil {
				return fmt.Errorf("failed to list public images: %w", err)
			}
			return printJSON(images)
		})
	},
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Manage the accounts an image is shared with",
}

var membersListCmd = &cobra.Command{
	Use:   "list [image-id]",
	Short: "List image members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b image.Backend) error {
			users, err := b.ListUsers(args[0])
			if err != nil {
				return fmt.Errorf("failed to list members: %w", err)
			}
			for _, u := range users {
				fmt.Println(u)
			}
			return nil
		})
	},
}

var membersAddCmd = &cobra.Command{
	Use:   "add [image-id] [account]",
	Short: "Share an image with an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b image.Backend) error {
			if err := b.AddUser(args[0], args[1]); err != nil {
				return fmt.Errorf("failed to add member: %w", err)
			}
			return nil
		})
	},
}

var membersRemoveCmd = &cobra.Command{
	Use:   "remove [image-id] [account]",
	Short: "Stop sharing an image with an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b image.Backend) error {
			if err := b.RemoveUser(args[0], args[1]); err != nil {
				return fmt.Errorf("failed to remove member: %w", err)
			}
			return nil
		})
	},
}

var membersReplaceCmd = &cobra.Command{
	Use:   "replace [image-id] [account...]",
	Short: "Replace the members of an image",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b image.Backend) error {
			if err := b.ReplaceUsers(args[0], args[1:]); err != nil {
				return fmt.Errorf("failed to replace members: %w", err)
			}
			return nil
		})
	},
}

func init() {
	registerFlags.bind(registerCmd.Flags(), false)
	updateFlags.bind(updateCmd.Flags(), true)
	listOpts.bind(listCmd.Flags())
	sharedOpts.bind(sharedCmd.Flags())
	publicOpts.bind(publicCmd.Flags())

	membersCmd.AddCommand(membersListCmd)
	membersCmd.AddCommand(membersAddCmd)
	membersCmd.AddCommand(membersRemoveCmd)
	membersCmd.AddCommand(membersReplaceCmd)

	imageCmd.AddCommand(registerCmd)
	imageCmd.AddCommand(getCmd)
	imageCmd.AddCommand(updateCmd)
	imageCmd.AddCommand(unregisterCmd)
	imageCmd.AddCommand(listCmd)
	imageCmd.AddCommand(sharedCmd)
	imageCmd.AddCommand(publicCmd)
	imageCmd.AddCommand(membersCmd)
}
