package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/yarko/wwwhisper/internal/authz"
	"github.com/yarko/wwwhisper/internal/config"
	"github.com/yarko/wwwhisper/internal/store"
)

type registries struct {
	db          *store.DB
	users       *authz.Users
	locations   *authz.Locations
	permissions *authz.Permissions
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "wwwhisper-admin",
		Short: "Access control management CLI for wwwhisper",
	}

	var dbConfig store.Config
	var configFile string

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbConfig.ConnectionString, "db-connection", "", "database connection string")
	rootCmd.PersistentFlags().StringVar(&dbConfig.Driver, "db-driver", "postgres", "database driver")

	// User commands
	var userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var userAddCmd = &cobra.Command{
		Use:   "add EMAIL",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r := setup(configFile, dbConfig)
			defer r.db.Close()

			user, err := r.users.Create(args[0])
			if err != nil {
				log.Fatalf("Failed to add user: %v", err)
			}

			fmt.Printf("User added:\n")
			fmt.Printf("Email: %s\n", user.Email)
			fmt.Printf("UUID:  %s\n", user.UUID)
		},
	}

	var userListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Run: func(cmd *cobra.Command, args []string) {
			r := setup(configFile, dbConfig)
			defer r.db.Close()

			users, err := r.users.List()
			if err != nil {
				log.Fatalf("Failed to list users: %v", err)
			}

			fmt.Printf("%-38s %-40s %-20s\n", "UUID", "Email", "Created")
			for _, user := range users {
				fmt.Printf("%-38s %-40s %-20s\n",
					user.UUID,
					user.Email,
					user.CreatedAt.Format("2006-01-02 15:04:05"),
				)
			}
		},
	}

	var userRemoveCmd = &cobra.Command{
		Use:   "remove EMAIL",
		Short: "Remove a user and all their permissions",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r := setup(configFile, dbConfig)
			defer r.db.Close()

			user := mustFindUser(r, args[0])
			existed, err := r.users.Delete(user.UUID)
			if err != nil || !existed {
				log.Fatalf("Failed to remove user: %v", err)
			}

			fmt.Printf("User %s removed\n", user.Email)
		},
	}

	userCmd.AddCommand(userAddCmd, userListCmd, userRemoveCmd)

	// Location commands
	var locationCmd = &cobra.Command{
		Use:   "location",
		Short: "Manage protected locations",
	}

	var locationAddCmd = &cobra.Command{
		Use:   "add PATH",
		Short: "Add a protected location",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r := setup(configFile, dbConfig)
			defer r.db.Close()

			location, err := r.locations.Create(args[0])
			if err != nil {
				log.Fatalf("Failed to add location: %v", err)
			}

			fmt.Printf("Location added:\n")
			fmt.Printf("Path: %s\n", location.Path)
			fmt.Printf("UUID: %s\n", location.UUID)
		},
	}

	var locationListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all locations with their allowed users",
		Run: func(cmd *cobra.Command, args []string) {
			r := setup(configFile, dbConfig)
			defer r.db.Close()

			locations, err := r.locations.All()
			if err != nil {
				log.Fatalf("Failed to list locations: %v", err)
			}

			for i := range locations {
				access := "restricted"
				if locations[i].OpenAccess {
					access = "open"
				}
				fmt.Printf("%s (%s)\n", locations[i].Path, access)

				allowed, err := r.permissions.AllowedUsers(&locations[i])
				if err != nil {
					log.Fatalf("Failed to list allowed users: %v", err)
				}
				for _, user := range allowed {
					fmt.Printf("  %s\n", user.Email)
				}
			}
		},
	}

	var locationRemoveCmd = &cobra.Command{
		Use:   "remove PATH",
		Short: "Remove a location and its permissions",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r := setup(configFile, dbConfig)
			defer r.db.Close()

			location := mustFindLocation(r, args[0])
			existed, err := r.locations.Delete(location.UUID)
			if err != nil || !existed {
				log.Fatalf("Failed to remove location: %v", err)
			}

			fmt.Printf("Location %s removed\n", location.Path)
		},
	}

	var locationOpenCmd = &cobra.Command{
		Use:   "open PATH",
		Short: "Allow everyone access to a location",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			setOpenAccess(configFile, dbConfig, args[0], true)
		},
	}

	var locationCloseCmd = &cobra.Command{
		Use:   "close PATH",
		Short: "Restrict a location to users with permissions",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			setOpenAccess(configFile, dbConfig, args[0], false)
		},
	}

	locationCmd.AddCommand(locationAddCmd, locationListCmd, locationRemoveCmd,
		locationOpenCmd, locationCloseCmd)

	// Grant permission command
	var grantCmd = &cobra.Command{
		Use:   "grant EMAIL PATH",
		Short: "Grant a user access to a location",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			r := setup(configFile, dbConfig)
			defer r.db.Close()

			user := mustFindUser(r, args[0])
			location := mustFindLocation(r, args[1])

			_, created, err := r.permissions.Grant(location, user.UUID)
			if err != nil {
				log.Fatalf("Failed to grant access: %v", err)
			}

			if created {
				fmt.Printf("Granted %s access to %s\n", user.Email, location.Path)
			} else {
				fmt.Printf("%s already has access to %s\n", user.Email, location.Path)
			}
		},
	}

	// Revoke permission command
	var revokeCmd = &cobra.Command{
		Use:   "revoke EMAIL PATH",
		Short: "Revoke a user's access to a location",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			r := setup(configFile, dbConfig)
			defer r.db.Close()

			user := mustFindUser(r, args[0])
			location := mustFindLocation(r, args[1])

			if err := r.permissions.Revoke(location, user.UUID); err != nil {
				log.Fatalf("Failed to revoke access: %v", err)
			}

			fmt.Printf("Revoked %s access to %s\n", user.Email, location.Path)
		},
	}

	// Check command
	var checkCmd = &cobra.Command{
		Use:   "check PATH [EMAIL]",
		Short: "Show the access decision for a path",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			r := setup(configFile, dbConfig)
			defer r.db.Close()

			userUUID := ""
			if len(args) == 2 {
				userUUID = mustFindUser(r, args[1]).UUID
			}

			authorizer := authz.NewAuthorizer(r.locations, r.permissions)
			fmt.Println(authorizer.CanAccess(args[0], userUUID).String())
		},
	}

	// Token hashing for the admin API
	var hashTokenCmd = &cobra.Command{
		Use:   "hash-token TOKEN",
		Short: "Print the bcrypt hash of an admin API token",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				log.Fatalf("Failed to hash token: %v", err)
			}
			fmt.Println(string(hash))
		},
	}

	// Schema initialization command
	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create the database schema",
		Run: func(cmd *cobra.Command, args []string) {
			r := setup(configFile, dbConfig)
			defer r.db.Close()
			fmt.Println("Schema initialized")
		},
	}

	rootCmd.AddCommand(userCmd, locationCmd, grantCmd, revokeCmd, checkCmd,
		hashTokenCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setOpenAccess(configFile string, dbConfig store.Config, path string, open bool) {
	r := setup(configFile, dbConfig)
	defer r.db.Close()

	location := mustFindLocation(r, path)
	if _, err := r.locations.SetOpenAccess(location.UUID, open); err != nil {
		log.Fatalf("Failed to update location: %v", err)
	}

	state := "closed"
	if open {
		state = "open"
	}
	fmt.Printf("Location %s is now %s\n", location.Path, state)
}

func mustFindUser(r *registries, email string) *store.User {
	user, err := r.users.FindByEmail(email)
	if err != nil {
		log.Fatalf("Failed to look up user: %v", err)
	}
	if user == nil {
		log.Fatalf("User %s not found", email)
	}
	return user
}

func mustFindLocation(r *registries, path string) *store.Location {
	location, err := r.locations.FindByPath(path)
	if err != nil {
		log.Fatalf("Failed to look up location: %v", err)
	}
	if location == nil {
		log.Fatalf("Location %s not found", path)
	}
	return location
}

func setup(configFile string, dbConfig store.Config) *registries {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err == nil && cfg.Database.Enabled {
			dbConfig.ConnectionString = cfg.Database.ConnectionString
			dbConfig.Driver = cfg.Database.Driver
			dbConfig.MaxOpenConns = cfg.Database.MaxOpenConns
			dbConfig.MaxIdleConns = cfg.Database.MaxIdleConns
			dbConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
		}
	}

	if dbConfig.ConnectionString == "" {
		log.Fatal("Database connection string is required. Use --db-connection or configure in config file")
	}

	db, err := store.NewConnection(dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	return &registries{
		db:          db,
		users:       authz.NewUsers(db),
		locations:   authz.NewLocations(db),
		permissions: authz.NewPermissions(db),
	}
}
